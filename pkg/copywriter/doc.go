// Package copywriter produces the short, upbeat Portuguese copy shown in the
// app: the home greeting, the message after a lesson is completed and the
// DAS due-date alert.
//
// Gemini generates the copy from structured input. Cached stores results in
// Redis, Static writes fixed copy without any model, and Fallback serves the
// static copy when the model fails, so the UI always gets a message.
package copywriter
