// Package clientip resolves the caller's address behind the Google front
// end and Cloudflare.
package clientip
