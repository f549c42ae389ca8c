package renderer

import "github.com/divecrm/divecrm/internal/model"

// Built-in templates ship with the binary so a fresh deployment can send
// follow-ups before anyone has edited a template. Stored templates for the
// same (kind, language) always win.

type builtinTemplate struct {
	subject string
	body    string
}

func builtin(kind model.EmailKind, lang model.Language) (*model.EmailTemplate, bool) {
	byLang, ok := builtins[kind]
	if !ok {
		return nil, false
	}
	t, ok := byLang[lang]
	if !ok {
		return nil, false
	}
	return &model.EmailTemplate{Kind: kind, Language: lang, Subject: t.subject, Body: t.body}, true
}

func body(greeting, lead, ask, closing string) string {
	return `<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;font-family:Arial,Helvetica,sans-serif;background-color:#f4f8fb;">
<table width="100%" cellpadding="0" cellspacing="0" style="padding:32px 0;">
<tr><td align="center">
<table width="520" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;">
  <tr><td style="padding:28px 36px 8px;">
    <p style="margin:0 0 16px;font-size:16px;color:#123;">` + greeting + `</p>
    <p style="margin:0 0 16px;font-size:15px;color:#345;line-height:1.6;">` + lead + `</p>
    <p style="margin:0 0 16px;font-size:15px;color:#345;line-height:1.6;">` + ask + `</p>
    <p style="margin:0 0 24px;font-size:15px;color:#345;">` + closing + `<br><strong>{{.AppName}}</strong></p>
  </td></tr>
</table>
</td></tr>
</table>
</body>
</html>`
}

var builtins = map[model.EmailKind]map[model.Language]builtinTemplate{
	model.KindFirstFollowUp: {
		model.LanguagePT: {
			subject: "Obrigado pela sua experiência de mergulho!",
			body: body(
				"Olá {{.Name}},",
				"Obrigado por ter mergulhado connosco no dia {{.VisitDate}}. Esperamos que tenha sido uma experiência inesquecível.",
				"Gostaríamos muito de saber a sua opinião: responda a este email com o seu feedback.",
				"Atenciosamente,"),
		},
		model.LanguageEN: {
			subject: "Thank you for your diving experience!",
			body: body(
				"Hello {{.Name}},",
				"Thank you for diving with us on {{.VisitDate}}. We hope it was an unforgettable experience.",
				"We would love to hear what you thought: just reply to this email with your feedback.",
				"Best regards,"),
		},
		model.LanguageDE: {
			subject: "Danke für Ihr Taucherlebnis",
			body: body(
				"Hallo {{.Name}},",
				"vielen Dank, dass Sie am {{.VisitDate}} mit uns getaucht sind. Wir hoffen, es war ein unvergessliches Erlebnis.",
				"Wir würden uns sehr über Ihre Meinung freuen: antworten Sie einfach auf diese E-Mail.",
				"Mit freundlichen Grüßen,"),
		},
		model.LanguageFR: {
			subject: "Merci d'avoir plongé avec nous",
			body: body(
				"Bonjour {{.Name}},",
				"Merci d'avoir plongé avec nous le {{.VisitDate}}. Nous espérons que ce fut une expérience inoubliable.",
				"Votre avis compte beaucoup pour nous: répondez simplement à cet e-mail.",
				"Cordialement,"),
		},
	},
	model.KindSecondFollowUp: {
		model.LanguagePT: {
			subject: "Como foi o seu mergulho connosco?",
			body: body(
				"Olá {{.Name}},",
				"Já passaram alguns dias desde o seu mergulho de {{.VisitDate}} e ainda não recebemos as suas novidades.",
				"A sua opinião ajuda-nos a melhorar: responda a este email quando tiver um minuto.",
				"Até breve,"),
		},
		model.LanguageEN: {
			subject: "How was your dive with us?",
			body: body(
				"Hello {{.Name}},",
				"A few days have passed since your dive on {{.VisitDate}} and we haven't heard from you yet.",
				"Your feedback helps us improve: reply to this email whenever you have a minute.",
				"See you soon,"),
		},
		model.LanguageDE: {
			subject: "Wie war Ihr Tauchgang bei uns?",
			body: body(
				"Hallo {{.Name}},",
				"seit Ihrem Tauchgang am {{.VisitDate}} sind einige Tage vergangen und wir haben noch nichts von Ihnen gehört.",
				"Ihr Feedback hilft uns, besser zu werden: antworten Sie auf diese E-Mail, wenn Sie eine Minute Zeit haben.",
				"Bis bald,"),
		},
		model.LanguageFR: {
			subject: "Comment s'est passée votre plongée ?",
			body: body(
				"Bonjour {{.Name}},",
				"Quelques jours ont passé depuis votre plongée du {{.VisitDate}} et nous sommes toujours sans nouvelles.",
				"Votre avis nous aide à progresser: répondez à cet e-mail dès que vous avez une minute.",
				"À bientôt,"),
		},
	},
	model.KindManual: {
		model.LanguagePT: {
			subject: "Obrigado pela sua experiência de mergulho!",
			body: body(
				"Olá {{.Name}},",
				"Obrigado por ter mergulhado connosco no dia {{.VisitDate}}.",
				"Gostaríamos muito de saber a sua opinião: responda a este email com o seu feedback.",
				"Atenciosamente,"),
		},
		model.LanguageEN: {
			subject: "Thank you for your diving experience!",
			body: body(
				"Hello {{.Name}},",
				"Thank you for diving with us on {{.VisitDate}}.",
				"We would love to hear what you thought: just reply to this email with your feedback.",
				"Best regards,"),
		},
		model.LanguageDE: {
			subject: "Danke für Ihr Taucherlebnis",
			body: body(
				"Hallo {{.Name}},",
				"vielen Dank, dass Sie am {{.VisitDate}} mit uns getaucht sind.",
				"Wir würden uns sehr über Ihre Meinung freuen: antworten Sie einfach auf diese E-Mail.",
				"Mit freundlichen Grüßen,"),
		},
		model.LanguageFR: {
			subject: "Merci d'avoir plongé avec nous",
			body: body(
				"Bonjour {{.Name}},",
				"Merci d'avoir plongé avec nous le {{.VisitDate}}.",
				"Votre avis compte beaucoup pour nous: répondez simplement à cet e-mail.",
				"Cordialement,"),
		},
	},
}
