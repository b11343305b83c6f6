package webhooks

import (
	"context"
	"net/http"
	"net/url"

	"github.com/angelmondragon/ordercore-backend/api/responses"
	"github.com/angelmondragon/ordercore-backend/internal/ecpay"
	"github.com/angelmondragon/ordercore-backend/pkg/logger"
)

// maxFormBytes bounds the gateway form; real notices are well under 4KB.
const maxFormBytes = 64 << 10

// ECPayService is the reconciliation surface the gateway endpoints drive.
type ECPayService interface {
	HandleCallback(ctx context.Context, form url.Values) string
	ReturnRedirect(ctx context.Context, form url.Values) string
}

// ECPayCallback receives the server-to-server payment notice. The response is
// always 200 text/plain "1|OK" or "0|FAIL"; the gateway retries on anything else.
func ECPayCallback(svc ECPayService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			if logg != nil {
				logg.Warn(ctx, "ecpay callback received without a payments service")
			}
			responses.WritePlain(w, http.StatusOK, ecpay.AckFail)
			return
		}

		form, err := readForm(w, r)
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "ecpay callback form unreadable", err)
			}
			responses.WritePlain(w, http.StatusOK, ecpay.AckFail)
			return
		}

		responses.WritePlain(w, http.StatusOK, svc.HandleCallback(ctx, form))
	}
}

// ECPayReturn handles the browser auto-return and redirects to the result page.
func ECPayReturn(svc ECPayService, fallbackURL string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteRedirect(w, r, fallbackURL+"?rtn_code=0")
			return
		}

		form, err := readForm(w, r)
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "ecpay return form unreadable", err)
			}
			form = url.Values{}
		}

		responses.WriteRedirect(w, r, svc.ReturnRedirect(ctx, form))
	}
}

func readForm(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return r.PostForm, nil
}
