package httputil

import (
	"encoding/json"
	"net/http"
)

// RespondJSON marshals data before writing the header so an encoding failure
// still produces a well-formed 500.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	write(w, status, "application/json", payload)
}

// RespondText writes a plain text body.
func RespondText(w http.ResponseWriter, status int, body string) {
	write(w, status, "text/plain; charset=utf-8", []byte(body))
}

// Problem is an RFC 7807 problem document. Extra members are flattened into the top-level object.
type Problem struct {
	Type   string
	Title  string
	Status int
	Detail string
	Extra  map[string]interface{}
}

func (p Problem) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(p.Extra)+4)
	for k, v := range p.Extra {
		m[k] = v
	}
	m["type"] = p.Type
	m["title"] = p.Title
	m["status"] = p.Status
	if p.Detail != "" {
		m["detail"] = p.Detail
	}
	return json.Marshal(m)
}

// RespondError writes a problem document for status.
func RespondError(w http.ResponseWriter, status int, detail string) {
	RespondErrorWithExtras(w, status, detail, nil)
}

// RespondErrorWithExtras writes a problem document with additional members, such as
// {"code": "missing_credential"}.
func RespondErrorWithExtras(w http.ResponseWriter, status int, detail string, extras map[string]interface{}) {
	payload, err := json.Marshal(Problem{
		Type:   problemType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Extra:  extras,
	})
	if err != nil {
		write(w, http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("internal server error"))
		return
	}
	write(w, status, "application/problem+json", payload)
}

var problemSections = map[int]string{
	http.StatusBadRequest:            "15.5.1",
	http.StatusUnauthorized:          "15.5.2",
	http.StatusForbidden:             "15.5.4",
	http.StatusNotFound:              "15.5.5",
	http.StatusConflict:              "15.5.10",
	http.StatusRequestEntityTooLarge: "15.5.14",
	http.StatusInternalServerError:   "15.6.1",
	http.StatusBadGateway:            "15.6.3",
}

// problemType links the status to its RFC 9110 section, or about:blank.
func problemType(status int) string {
	if section, ok := problemSections[status]; ok {
		return "https://www.rfc-editor.org/rfc/rfc9110#section-" + section
	}
	return "about:blank"
}

func write(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
