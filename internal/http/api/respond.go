// Package api holds helpers shared by the admin and front HTTP surfaces.
package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/fovdark/fovdark/internal/apperr"
)

// Pagination bounds applied to every list endpoint.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Page holds the parsed pagination window for a list request.
type Page struct {
	Number  int // 1-based page number.
	PerPage int // Rows per page.
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// ParsePage reads `page` and `per_page` query parameters, clamping them to
// sane bounds.
func ParsePage(c *gin.Context) Page {
	page := Page{Number: 1, PerPage: DefaultPerPage}
	if raw := strings.TrimSpace(c.Query("page")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 {
			page.Number = parsed
		}
	}
	if raw := strings.TrimSpace(c.Query("per_page")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 {
			page.PerPage = parsed
		}
	}
	if page.PerPage > MaxPerPage {
		page.PerPage = MaxPerPage
	}
	return page
}

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// Fail writes the error as a JSON response. Internal causes are logged, never
// echoed to the client.
func Fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(StatusFor(kind), gin.H{"error": apperr.MessageOf(err)})
}

// ParseID reads a numeric path parameter.
func ParseID(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
