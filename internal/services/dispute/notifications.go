package dispute

import (
	"fmt"
	"strings"

	"arbitra/internal/models"
	"arbitra/internal/services/notification"
)

func createdEmails(d *models.Dispute) []notification.Email {
	return []notification.Email{
		{
			To:      d.InitiatorEmail,
			Subject: "Dispute Created",
			Message: fmt.Sprintf("Your dispute %s (%s) has been created and is awaiting review.", d.ID, d.Reason),
		},
		{
			To:      d.CounterpartyEmail,
			Subject: "New Dispute Filed",
			Message: fmt.Sprintf("A dispute %s has been filed by %s: %s. You may submit evidence while it is open.", d.ID, d.InitiatorEmail, d.Reason),
		},
	}
}

func assignedEmail(d *models.Dispute, arbitrator *models.APIKey) notification.Email {
	return notification.Email{
		To:      arbitrator.Email,
		Subject: "New Dispute Assignment",
		Message: fmt.Sprintf("Dispute %s (%s) has been assigned to you.", d.ID, d.Reason),
	}
}

func resolvedEmails(d *models.Dispute, arbitratorEmail string) []notification.Email {
	outcome := humanize(string(*d.Resolution))
	emails := []notification.Email{
		{
			To:      d.InitiatorEmail,
			Subject: "Dispute Resolved",
			Message: fmt.Sprintf("Your dispute %s has been resolved: %s.", d.ID, outcome),
		},
		{
			To:      d.CounterpartyEmail,
			Subject: "Dispute Resolved",
			Message: fmt.Sprintf("Dispute %s filed by %s has been resolved: %s.", d.ID, d.InitiatorEmail, outcome),
		},
	}
	if arbitratorEmail != "" {
		emails = append(emails, notification.Email{
			To:      arbitratorEmail,
			Subject: "Dispute Resolved",
			Message: fmt.Sprintf("Dispute %s has been closed as %s.", d.ID, outcome),
		})
	}
	return emails
}

func rejectedEmails(d *models.Dispute, reason string) []notification.Email {
	return []notification.Email{
		{
			To:      d.InitiatorEmail,
			Subject: "Dispute Rejected",
			Message: fmt.Sprintf("Your dispute %s has been rejected. Reason: %s", d.ID, reason),
		},
		{
			To:      d.CounterpartyEmail,
			Subject: "Dispute Rejected",
			Message: fmt.Sprintf("Dispute %s filed by %s has been rejected.", d.ID, d.InitiatorEmail),
		},
	}
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
