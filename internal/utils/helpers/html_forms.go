package helpers

import (
	"fmt"
	"html"
	"time"
)

func BuildPasswordResetHTML(name, resetLink string, ttl time.Duration) string {
	return fmt.Sprintf(`
<html>
  <body style="font-family:Arial,sans-serif; background:#f9f9f9;">
    <table width="100%%" cellpadding="0" cellspacing="0" bgcolor="#f9f9f9">
      <tr>
        <td align="center" style="padding:32px 0;">
          <table width="500" bgcolor="#fff" cellpadding="24" cellspacing="0" style="border-radius:8px; box-shadow:0 1px 6px #eee;">
            <tr>
              <td>
                <h2 style="color:#2d74da; margin-top:0;">Password reset</h2>
                <p style="font-size:16px; color:#222;">Hello, %s. A password reset was requested for your account.</p>
                <p>To choose a new password, follow the link below:</p>
                <p>
                  <a href="%s" style="display:inline-block;padding:12px 24px;background:#2d74da;color:#fff;text-decoration:none;border-radius:5px;font-weight:bold;">
                    Reset password
                  </a>
                </p>
                <p style="font-size:14px; color:#666;">The link is valid for %s and can be used once.</p>
                <hr style="margin:32px 0 16px 0; border:0; border-top:1px solid #eee;">
                <div style="font-size:12px; color:#999;">If you did not request a reset, ignore this email. Your password stays the same.</div>
              </td>
            </tr>
          </table>
        </td>
      </tr>
    </table>
  </body>
</html>
`, html.EscapeString(name), html.EscapeString(resetLink), humanDuration(ttl))
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
