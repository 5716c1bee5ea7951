package tenants

import (
	"net/url"
	"strings"

	"github.com/jrsteele09/go-bingo-admin/internal/errors"
)

// Placeholder is substituted with the tenant ID in URL templates
const Placeholder = "{tenant}"

// ValidateTemplate checks that template is an absolute URL carrying the placeholder
func ValidateTemplate(template string) error {
	if !strings.Contains(template, Placeholder) {
		return errors.Wrapf(errors.ErrInvalidTemplate, "[tenants ValidateTemplate] %q has no %s placeholder", template, Placeholder)
	}
	u, err := url.Parse(ExpandTemplate(template, "tenant"))
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidTemplate, "[tenants ValidateTemplate] %s", err.Error())
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.Wrapf(errors.ErrInvalidTemplate, "[tenants ValidateTemplate] %q is not an absolute url", template)
	}
	return nil
}

// ExpandTemplate substitutes every placeholder with tenantID
func ExpandTemplate(template, tenantID string) string {
	return strings.ReplaceAll(template, Placeholder, tenantID)
}
