package handler

import "net/http"

type redirectResponse struct {
	url    string
	status int
}

func (r redirectResponse) Render(w http.ResponseWriter, req *http.Request) error {
	http.Redirect(w, req, r.url, r.status)
	return nil
}

// Redirect responds 307 so the method and body are preserved.
func Redirect(url string) Response {
	return redirectResponse{url: url, status: http.StatusTemporaryRedirect}
}

func RedirectWithStatus(url string, status int) Response {
	return redirectResponse{url: url, status: status}
}
