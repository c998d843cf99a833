// Package mailer delivers verification mail for the engine.
//
// Templates are keyed by template key (AccountActivation, PasswordReset) and
// carry a Subject and Body in which {{Name}} placeholders are replaced with
// the values supplied by the engine. A template that references a
// placeholder the caller did not provide fails to render; nothing is sent.
//
// Two implementations of ardentid.Mailer are provided: [SMTPSender] sends
// through an SMTP relay with go-mail, and [LogMailer] writes the rendered
// message to a zap logger for local development.
package mailer
