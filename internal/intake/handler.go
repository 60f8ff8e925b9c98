package intake

import (
	"context"
	"strings"

	"diagnostico_backend/platform/apperr"
	"diagnostico_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Submitter runs a submission through the pipeline.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) (Result, error)
}

type Handler struct {
	svc     Submitter
	baseURL string
}

func NewHandler(svc Submitter, publicBaseURL string) *Handler {
	return &Handler{svc: svc, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Submit)
}

func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidBody).WithOp("intake.Bind"))
		return
	}

	sub := NewSubmission(req)
	sub.RemoteIP = c.ClientIP()
	sub.Origin = h.origin(c)

	res, err := h.svc.Submit(c.Request.Context(), sub)
	if httpkit.HandleError(c, err) {
		return
	}

	message := res.Verdict.Message
	if message == "" {
		message = msgAccepted
	}
	httpkit.OK(c, SubmitResponse{
		OK:          true,
		Message:     message,
		DealID:      res.DealID,
		DealCreated: true,
		Verdict:     toVerdictDTO(res.Verdict),
	})
}

// origin reconstructs the public origin of the request behind a proxy.
// The configured base URL wins when set.
func (h *Handler) origin(c *gin.Context) string {
	if h.baseURL != "" {
		return h.baseURL
	}

	host := c.GetHeader("X-Forwarded-Host")
	if host == "" {
		host = c.Request.Host
	}
	if host == "" {
		return ""
	}

	proto := c.GetHeader("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
		if c.Request.TLS != nil {
			proto = "https"
		}
	}
	// Forwarded headers may carry a comma-separated chain; the first hop is the client's.
	proto, _, _ = strings.Cut(proto, ",")
	host, _, _ = strings.Cut(host, ",")
	return strings.TrimSpace(proto) + "://" + strings.TrimSpace(host)
}
