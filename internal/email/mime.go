package email

import (
	"fmt"
	"mime"
	"strings"
	"time"
)

// buildMIME assembles the raw RFC 5322 message for a Message. HTML and text
// bodies become a multipart/alternative; a single body is sent as-is.
func buildMIME(from string, msg Message) []byte {
	subject := mime.BEncoding.Encode("UTF-8", msg.Subject)
	date := time.Now().Format(time.RFC1123Z)

	var content string
	if msg.HTMLBody != "" && msg.TextBody != "" {
		boundary := fmt.Sprintf("divecrm_%d", time.Now().UnixNano())
		content = strings.Join([]string{
			"From: " + from,
			"To: " + msg.To,
			"Subject: " + subject,
			"Date: " + date,
			"MIME-Version: 1.0",
			"Content-Type: multipart/alternative; boundary=" + boundary,
			"",
			"--" + boundary,
			"Content-Type: text/plain; charset=UTF-8",
			"Content-Transfer-Encoding: 8bit",
			"",
			msg.TextBody,
			"",
			"--" + boundary,
			"Content-Type: text/html; charset=UTF-8",
			"Content-Transfer-Encoding: 8bit",
			"",
			msg.HTMLBody,
			"",
			"--" + boundary + "--",
		}, "\r\n")
	} else if msg.HTMLBody != "" {
		content = strings.Join([]string{
			"From: " + from,
			"To: " + msg.To,
			"Subject: " + subject,
			"Date: " + date,
			"MIME-Version: 1.0",
			"Content-Type: text/html; charset=UTF-8",
			"",
			msg.HTMLBody,
		}, "\r\n")
	} else {
		content = strings.Join([]string{
			"From: " + from,
			"To: " + msg.To,
			"Subject: " + subject,
			"Date: " + date,
			"MIME-Version: 1.0",
			"Content-Type: text/plain; charset=UTF-8",
			"",
			msg.TextBody,
		}, "\r\n")
	}

	return []byte(content)
}

// formatFrom renders "Name <addr>" or the bare address
func formatFrom(name, addr string) string {
	if name != "" {
		return fmt.Sprintf("%s <%s>", name, addr)
	}
	return addr
}
