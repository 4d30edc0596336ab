package otp

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/sirupsen/logrus"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPSender mails login codes. Without a host it only logs them, which is
// what local development runs with.
type SMTPSender struct {
	cfg  SMTPConfig
	log  *logrus.Logger
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig, log *logrus.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, log: log, send: smtp.SendMail}
}

func (s *SMTPSender) SendOTP(ctx context.Context, email string, code string) error {
	if s.cfg.Host == "" {
		s.log.WithFields(logrus.Fields{"email": email, "otp": code}).Info("smtp not configured, login code logged")
		return nil
	}

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}
	from := s.cfg.From
	if from == "" {
		from = s.cfg.User
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your login code\r\n\r\nYour login code is %s. It expires in 10 minutes.\r\n",
		from, email, code,
	))
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := s.send(addr, auth, from, []string{email}, msg); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	return nil
}
