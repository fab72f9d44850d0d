package v1

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"go-healthcare-frontdesk/internal/delivery/http/response"
	"go-healthcare-frontdesk/internal/domain"
	"go-healthcare-frontdesk/pkg/apperror"
	"go-healthcare-frontdesk/pkg/logger"
	"go-healthcare-frontdesk/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Parts above this size are buffered on disk by mime/multipart before spooling
const multipartMemory = 1 << 20

// attachmentFields are checked in order; the first file of the first present field is used
var attachmentFields = []string{"resume", "attachment"}

var submissionRoutes = []struct {
	path string
	kind domain.SubmissionKind
}{
	{"/appointments", domain.SubmissionAppointment},
	{"/careers/applications", domain.SubmissionApplication},
	{"/compliance/reports", domain.SubmissionHelpline},
}

type SubmissionHandler struct {
	submissionUC   domain.SubmissionUsecase
	spool          *storage.Spool
	maxUploadBytes int64
}

// NewSubmissionHandler registers the public relay routes (no auth required).
// Other methods on these paths are answered by the router's NoMethod handler.
func NewSubmissionHandler(public *gin.RouterGroup, submissionUC domain.SubmissionUsecase, spool *storage.Spool, maxUploadBytes int64) {
	handler := &SubmissionHandler{
		submissionUC:   submissionUC,
		spool:          spool,
		maxUploadBytes: maxUploadBytes,
	}

	for _, route := range submissionRoutes {
		public.POST(route.path, handler.Submit(route.kind))
	}
}

// Submit godoc
// @Summary      Submit a website form
// @Description  Relays an appointment request, job application or compliance report to the front desk mailbox.
// @Description  Accepts multipart/form-data with an optional file in "resume" or "attachment".
// @Tags         submissions
// @Accept       multipart/form-data
// @Produce      json
// @Param        name        formData  string  true   "Full name"
// @Param        email       formData  string  true   "Email address"
// @Param        phone       formData  string  true   "Phone number"
// @Param        message     formData  string  true   "Message"
// @Param        resume      formData  file    false  "Attachment"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      405  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /appointments [post]
// @Router       /careers/applications [post]
// @Router       /compliance/reports [post]
func (h *SubmissionHandler) Submit(kind domain.SubmissionKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

		if err := parseForm(c.Request); err != nil {
			if isTooLarge(err) {
				err = fmt.Errorf("upload exceeds %d bytes: %w", h.maxUploadBytes, err)
			}
			c.Error(apperror.New(http.StatusInternalServerError, domain.MsgParseFailed, err))
			return
		}
		if form := c.Request.MultipartForm; form != nil {
			defer func() {
				if err := form.RemoveAll(); err != nil {
					logger.Log.Warn("failed to remove multipart temp files", "error", err)
				}
			}()
		}

		var req domain.SubmissionRequest
		if err := c.ShouldBindWith(&req, binding.Form); err != nil {
			c.Error(apperror.New(http.StatusInternalServerError, domain.MsgParseFailed, err))
			return
		}

		att, err := h.spoolAttachment(c.Request.MultipartForm)
		if err != nil {
			c.Error(apperror.New(http.StatusInternalServerError, domain.MsgParseFailed, err))
			return
		}
		defer func() {
			if err := h.spool.Remove(att); err != nil {
				logger.Log.Error("failed to remove spooled attachment", "error", err, "path", att.Path)
			}
		}()

		if err := h.submissionUC.Submit(c.Request.Context(), kind, &req, att); err != nil {
			c.Error(err)
			return
		}

		logger.Log.Info("submission relayed",
			"kind", kind,
			"has_attachment", att != nil,
			"request_id", c.GetString(response.RequestIDKey),
		)
		response.Success(c, http.StatusOK, domain.MsgEmailSent, nil)
	}
}

// parseForm accepts multipart and url-encoded bodies
func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return r.ParseMultipartForm(multipartMemory)
	}
	return r.ParseForm()
}

func (h *SubmissionHandler) spoolAttachment(form *multipart.Form) (*domain.Attachment, error) {
	if form == nil {
		return nil, nil
	}

	for _, field := range attachmentFields {
		files := form.File[field]
		if len(files) == 0 {
			continue
		}

		fh := files[0]
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s upload: %w", field, err)
		}
		defer f.Close()

		return h.spool.Save(fh.Filename, f)
	}
	return nil, nil
}

// isTooLarge reports whether err came from the upload size limit
func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
