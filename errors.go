/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// logf writes a server event line when --verbose is set.
func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	cfg.log().Sugar().Infof(format, args...)
}

func (c *Config) log() *zap.Logger {
	if c.logger == nil {
		return zap.NewNop()
	}

	return c.logger
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<link rel="stylesheet" href="/assets/app.css">`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body class=\"error-page\"><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
