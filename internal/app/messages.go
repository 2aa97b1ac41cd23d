package app

import (
	"fmt"

	"physician_credential_tracker/internal/domain/credential"
	"physician_credential_tracker/internal/domain/notification"
)

func credentialLabel(t credential.EntityType) string {
	switch t {
	case credential.EntityTypeLicense:
		return "Medical License"
	case credential.EntityTypeDEA:
		return "DEA Registration"
	case credential.EntityTypeCSR:
		return "CSR License"
	case credential.EntityTypeCertification:
		return "Board Certification"
	default:
		return "Credential"
	}
}

// composeNotification renders the subject and body for a notification. Critical
// notifications carry an "URGENT" prefix so they stand out in any transport.
func composeNotification(n *notification.Notification) (subject, body string) {
	label := credentialLabel(n.Type)
	if n.LicenseType != "" {
		label = fmt.Sprintf("%s (%s)", label, n.LicenseType)
	}

	switch n.DaysBeforeExpiry {
	case 1:
		subject = fmt.Sprintf("%s for %s expires tomorrow", label, n.ProviderName)
	default:
		subject = fmt.Sprintf("%s for %s expires in %d days", label, n.ProviderName, n.DaysBeforeExpiry)
	}
	if n.Severity == credential.SeverityCritical {
		subject = "URGENT: " + subject
	}

	body = fmt.Sprintf(
		"The %s held by %s in %s expires on %s.\n"+
			"Please begin the renewal process now to avoid a lapse in practice authorization.",
		label, n.ProviderName, n.State, n.ExpirationDate.Format("January 2, 2006"),
	)
	return subject, body
}
