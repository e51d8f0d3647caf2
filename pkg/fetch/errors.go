package fetch

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"unicode/utf8"
)

const maxErrorBody = 200

// CheckResponseError turns a non-2xx response into a ResponseError,
// consuming the body for its message. 2xx responses pass through with
// the body untouched.
func CheckResponseError(res *http.Response) error {
	if http.StatusOK <= res.StatusCode && res.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return err
	}
	_ = res.Body.Close()

	return ResponseError{
		Status:  res.StatusCode,
		Message: snippet(body),
	}
}

type ResponseError struct {
	Status  int
	Message string
}

func (e ResponseError) Error() string {
	const unknown = "unknown error"

	msg := e.Message
	if msg == "" && e.Status > 0 {
		msg = http.StatusText(e.Status)
	}
	if msg == "" {
		msg = unknown
	}

	if e.Status > 0 {
		return fmt.Sprintf("%03d: %s", e.Status, msg)
	}

	return msg
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= maxErrorBody {
		return s
	}

	s = s[:maxErrorBody]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s + "..."
}
