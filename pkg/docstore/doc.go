// Package docstore holds the per-user document store in three backends.
//
// Every backend implements subscription.Store and ledger.Store plus the
// admin listing methods:
//
//   - Firestore stores users/{uid} with the
//     subscription/current, institutions, lessons, pots and
//     monthly_obligations subcollections.
//   - Mongo keeps the subscription embedded in the user document and the
//     child records in one collection each, keyed by user.
//   - Memory keeps everything in maps and is used by tests and local runs.
//
// ApplySubscription is a single atomic write in every backend: a Firestore
// transaction, one Mongo update or one critical section.
package docstore
