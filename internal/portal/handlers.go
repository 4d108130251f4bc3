package portal

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/nerrad567/gray-logic-uplink/internal/credentials"
)

const formHTML = `<!DOCTYPE html>
<html><head><meta name="viewport" content="width=device-width"><title>Network setup</title></head>
<body>
<form method="POST" action="/save">
<p>Primary network<br><input name="ssid1" maxlength="32" required> <input name="pass1" type="password" maxlength="64"></p>
<p>Secondary network<br><input name="ssid2" maxlength="32"> <input name="pass2" type="password" maxlength="64"></p>
<p><button type="submit">Save</button></p>
</form>
</body></html>
`

func (p *Portal) handleForm(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response
	w.Write([]byte(formHTML))
}

func (p *Portal) handleSave(submitted chan<- Result) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid form body")
			return
		}

		res, err := parseSubmission(r.PostForm)
		if err != nil {
			p.logger.Warn("rejected submission", "error", err)
			writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
			return
		}

		select {
		case submitted <- res:
		default:
			// A submission is already being applied.
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"status": "saved",
		})
	}
}

func (p *Portal) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseSubmission builds both pairs from the form. The primary network is
// required; the secondary may be left blank.
func parseSubmission(form url.Values) (Result, error) {
	res := Result{
		Primary: credentials.Pair{
			Label:  credentials.Primary,
			SSID:   strings.TrimSpace(form.Get(credentials.KeySSID1)),
			Secret: form.Get(credentials.KeyPass1),
		},
		Secondary: credentials.Pair{
			Label:  credentials.Secondary,
			SSID:   strings.TrimSpace(form.Get(credentials.KeySSID2)),
			Secret: form.Get(credentials.KeyPass2),
		},
	}

	if res.Primary.Empty() {
		return Result{}, ErrMissingPrimary
	}
	if err := res.Primary.Validate(); err != nil {
		return Result{}, fmt.Errorf("primary: %w", err)
	}
	if err := res.Secondary.Validate(); err != nil {
		return Result{}, fmt.Errorf("secondary: %w", err)
	}
	return res, nil
}
