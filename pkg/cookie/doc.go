// Package cookie manages the session cookie that carries the Firebase ID
// token between the PWA and the backend.
//
// The cookie value is the raw token: the backend verifies it with Firebase
// on every API call, and the route gate only checks that it is present.
//
//	man, err := cookie.New(cookie.Config{Name: "firebase-auth-token", MaxAge: 86400})
//	man.Set(w, idToken)
//	token, err := man.Get(r)
//	man.Delete(w)
package cookie
