package view

import (
	"bytes"
	"html/template"
)

// CodePageData fills the code viewer page.
type CodePageData struct {
	Path     string
	Content  string
	Language string
}

// PasswordPageData fills the password prompt. Failed marks a rejected attempt.
type PasswordPageData struct {
	Path   string
	Failed bool
}

type codeMeta struct {
	Language string `json:"language"`
}

type passwordMeta struct {
	Error    bool   `json:"error"`
	PathName string `json:"path_name"`
}

var pages = template.Must(template.New("pages").Parse(`{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<title>{{.Title}} · Spectra</title>
	<style>
		:root {
			--bg: #0b0d12;
			--card: rgba(255, 255, 255, 0.04);
			--border: rgba(255, 255, 255, 0.12);
			--text: #e6e9f2;
			--muted: #98a2b8;
			--accent: #a78bfa;
			font-family: "Inter", -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
		}
		* { box-sizing: border-box; }
		body {
			margin: 0;
			min-height: 100vh;
			background: var(--bg);
			color: var(--text);
			display: flex;
			justify-content: center;
			padding: 48px 16px;
		}
		main {
			width: min(960px, 100%);
			background: var(--card);
			border: 1px solid var(--border);
			border-radius: 16px;
			padding: 28px;
		}
		h1 { font-size: 1.3rem; margin: 0 0 12px; }
		p { color: var(--muted); }
		pre {
			margin: 0;
			padding: 18px;
			overflow-x: auto;
			border-radius: 12px;
			background: rgba(0, 0, 0, 0.35);
			font: 0.9rem/1.5 "JetBrains Mono", ui-monospace, monospace;
		}
		form { display: flex; gap: 10px; margin-top: 18px; }
		input[type=password] {
			flex: 1;
			height: 44px;
			padding: 0 14px;
			border-radius: 10px;
			border: 1px solid var(--border);
			background: transparent;
			color: var(--text);
		}
		button {
			height: 44px;
			padding: 0 22px;
			border: 0;
			border-radius: 10px;
			background: var(--accent);
			color: #0b0d12;
			font-weight: 600;
		}
		.error { color: #f87171; }
	</style>
</head>
<body>
	<main>{{template "body" .}}</main>
</body>
</html>{{end}}`))

var (
	codePage = template.Must(template.Must(pages.Clone()).Parse(`{{define "body"}}
		<h1>/{{.Data.Path}}</h1>
		<pre><code class="language-{{.Data.Language}}">{{.Data.Content}}</code></pre>
		<script id="meta" type="application/json">{{.Meta}}</script>
	{{end}}`))

	passwordPage = template.Must(template.Must(pages.Clone()).Parse(`{{define "body"}}
		<h1>/{{.Data.Path}} is password protected</h1>
		{{if .Data.Failed}}<p class="error">Wrong password, try again.</p>{{else}}<p>Enter the password to continue.</p>{{end}}
		<form method="post" action="/{{.Data.Path}}">
			<input type="password" name="password" autofocus required />
			<button type="submit">Open</button>
		</form>
		<script id="meta" type="application/json">{{.Meta}}</script>
	{{end}}`))

	notFoundPage = template.Must(template.Must(pages.Clone()).Parse(`{{define "body"}}
		<h1>Not found</h1>
		<p>Nothing is shared at /{{.Data}}, or it has expired.</p>
	{{end}}`))
)

type page struct {
	Title string
	Data  any
	Meta  any
}

func render(t *template.Template, p page) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderCodePage renders a code item.
func RenderCodePage(data CodePageData) (string, error) {
	if data.Language == "" {
		data.Language = "text"
	}
	return render(codePage, page{Title: data.Path, Data: data, Meta: codeMeta{Language: data.Language}})
}

// RenderPasswordPage renders the password prompt for a protected item.
func RenderPasswordPage(data PasswordPageData) (string, error) {
	return render(passwordPage, page{
		Title: "Password required",
		Data:  data,
		Meta:  passwordMeta{Error: data.Failed, PathName: data.Path},
	})
}

func RenderNotFoundPage(path string) (string, error) {
	return render(notFoundPage, page{Title: "Not found", Data: path})
}
