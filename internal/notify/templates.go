package notify

import (
	"fmt"
	"html"
)

// The provider renders raw HTML; templates stay small and inline the few
// dynamic values after escaping.

func welcomeHTML(userName, orgName, dashboardURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333333;">
  <h1 style="color: #1a56db;">Enterprise Workspace Ready</h1>
  <p>Dear %s,</p>
  <p>Your enterprise workspace for <strong>%s</strong> has been created.
  You can now invite your team, share contract analyses and manage your
  subscription from the admin dashboard.</p>
  <p><a href="%s" style="background-color: #1a56db; color: #ffffff; padding: 12px 24px; text-decoration: none; border-radius: 6px;">Go to Dashboard</a></p>
  <p>Best regards,<br>The Contract Analysis Team</p>
</body>
</html>`, html.EscapeString(userName), html.EscapeString(orgName), dashboardURL)
}

func inviteHTML(orgName, inviterName, role, acceptLink string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333333;">
  <h1 style="color: #1a56db;">Team Invitation</h1>
  <p>%s has invited you to join <strong>%s</strong> as a %s.</p>
  <p>The invitation is valid for 7 days.</p>
  <p><a href="%s" style="background-color: #1a56db; color: #ffffff; padding: 12px 24px; text-decoration: none; border-radius: 6px;">Accept Invitation</a></p>
  <p>If you were not expecting this invitation you can ignore this email.</p>
</body>
</html>`, html.EscapeString(inviterName), html.EscapeString(orgName), html.EscapeString(role), acceptLink)
}

func premiumHTML(userName, dashboardURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333333;">
  <h1 style="color: #1a56db;">Premium Subscription Activated</h1>
  <p>Dear %s,</p>
  <p>Thank you for subscribing to <strong>Premium Contract Analysis</strong>.
  Your lifetime access has been activated: detailed contract breakdowns,
  negotiation suggestions, extended risk and opportunity detection and
  unlimited uploads are now enabled on your account.</p>
  <p><a href="%s" style="background-color: #1a56db; color: #ffffff; padding: 12px 24px; text-decoration: none; border-radius: 6px;">Go to Dashboard</a></p>
  <p>Best regards,<br>The Contract Analysis Team</p>
</body>
</html>`, html.EscapeString(userName), dashboardURL)
}
