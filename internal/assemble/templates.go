// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"html"
	"text/template"
)

// Every piece of plan text passes through esc. Templates never emit plan
// text without it.
var funcs = template.FuncMap{
	"esc":   html.EscapeString,
	"lines": func(n int) []struct{} { return make([]struct{}, n) },
}

const baseCSS = `body{font-family:"Helvetica Neue",Arial,sans-serif;font-size:14pt;line-height:1.5;margin:0.6in;color:#222}
h1{font-size:22pt;margin:0 0 0.2in}
h2{font-size:16pt;margin:0.25in 0 0.1in;border-bottom:1px solid #999}
.meta{font-size:11pt;color:#555}
.name-line{margin:0.1in 0 0.2in}
.question{margin:0 0 0.25in;page-break-inside:avoid}
.question-number{font-weight:bold;margin-right:0.1in}
.options{margin:0.05in 0 0 0.3in}
.write-line{border-bottom:1px solid #444;height:0.35in}
figure{margin:0.1in 0;text-align:center}
figure img{max-width:100%}
.image-placeholder{display:inline-block;border:2px dashed #bbb;background:#f6f6f6;color:#888;font-size:10pt;text-align:center}
.answer{margin:0 0 0.12in}
.explanation{font-size:11pt;color:#555;margin:0.02in 0 0 0.3in}
.duration{font-size:11pt;color:#555}
@media print{body{margin:0.4in}}`

var worksheetTmpl = template.Must(template.New("worksheet").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{esc .Title}}</title>
<style>{{.CSS}}</style>
</head>
<body>
<header>
<h1>{{esc .Title}}</h1>
<p class="meta">Grade {{esc .Grade}}{{if .Subject}} · {{esc .Subject}}{{end}}</p>
{{- if or .Header.ShowName .Header.ShowDate}}
<p class="name-line">{{if .Header.ShowName}}Name: ______________________ {{end}}{{if .Header.ShowDate}}Date: ____________{{end}}</p>
{{- end}}
{{- if .Header.Instructions}}
<p class="instructions">{{esc .Header.Instructions}}</p>
{{- end}}
</header>
<main>
{{- range .Sections}}
<section class="section section-{{esc (print .Type)}}">
<h2>{{esc .Title}}</h2>
{{- if .Instructions}}
<p class="instructions">{{esc .Instructions}}</p>
{{- end}}
{{- range .Items}}
<div class="question" id="{{esc .Item.ID}}" data-type="{{esc (print .Item.Type)}}">
<p><span class="question-number">{{.Number}}.</span>{{esc .Item.Text}}</p>
{{- range .Figures}}
{{template "figure" .}}
{{- end}}
{{- if .Item.Options}}
<ol class="options" type="A">
{{- range .Item.Options}}
<li>{{esc .}}</li>
{{- end}}
</ol>
{{- else if eq (print .Item.Type) "true_false"}}
<p class="options">True &nbsp;&nbsp; False</p>
{{- end}}
{{- range lines .Lines}}
<div class="write-line"></div>
{{- end}}
</div>
{{- end}}
</section>
{{- end}}
</main>
</body>
</html>
`))

func init() {
	template.Must(worksheetTmpl.New("figure").Parse(`{{if .Placeholder -}}
<figure><div class="image-placeholder" style="width:{{.Width}}px;height:{{.Height}}px" role="img" aria-label="{{esc .Alt}}">Image: {{esc .Alt}}</div></figure>
{{- else -}}
<figure><img src="{{esc .Src}}" alt="{{esc .Alt}}" width="{{.Width}}" height="{{.Height}}"></figure>
{{- end}}`))
}

var answerKeyTmpl = template.Must(template.New("answers").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{esc .Title}} · Answer Key</title>
<style>{{.CSS}}</style>
</head>
<body>
<header>
<h1>{{esc .Title}} · Answer Key</h1>
<p class="meta">Grade {{esc .Grade}}{{if .Subject}} · {{esc .Subject}}{{end}}</p>
</header>
<main>
{{- range .Sections}}
<section class="section section-{{esc (print .Type)}}">
<h2>{{esc .Title}}</h2>
{{- range .Items}}
<div class="answer" id="answer-{{esc .Item.ID}}">
<span class="question-number">{{.Number}}.</span>{{if .Item.CorrectAnswer}}{{esc .Item.CorrectAnswer}}{{else}}<em>Answers will vary.</em>{{end}}
{{- if .Item.Explanation}}
<p class="explanation">{{esc .Item.Explanation}}</p>
{{- end}}
</div>
{{- end}}
</section>
{{- end}}
</main>
</body>
</html>
`))

var guideTmpl = template.Must(template.New("guide").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{esc .Title}} · Lesson Plan</title>
<style>{{.CSS}}</style>
</head>
<body>
<header>
<h1>{{esc .Title}} · Lesson Plan</h1>
<p class="meta">Grade {{esc .Grade}}{{if .Subject}} · {{esc .Subject}}{{end}}{{if .Duration}} · {{.Duration}} minutes{{end}}</p>
</header>
<main>
{{- if .Objectives}}
<section class="objectives">
<h2>Learning Objectives</h2>
<ul>
{{- range .Objectives}}
<li>{{esc .}}</li>
{{- end}}
</ul>
</section>
{{- end}}
{{- if .Materials}}
<section class="materials">
<h2>Materials</h2>
<ul>
{{- range .Materials}}
<li>{{esc .Name}}{{if .Quantity}} ({{esc .Quantity}}){{end}}</li>
{{- end}}
</ul>
</section>
{{- end}}
{{- range .Sections}}
<section class="section section-{{esc (print .Type)}}">
<h2>{{esc .Title}}{{if .Duration}} <span class="duration">{{.Duration}} min</span>{{end}}</h2>
{{- if .Instructions}}
<p class="instructions">{{esc .Instructions}}</p>
{{- end}}
<ol class="activities">
{{- range .Items}}
<li>{{esc .Item.Text}}{{if .Item.CorrectAnswer}} <em>Answer: {{esc .Item.CorrectAnswer}}</em>{{end}}</li>
{{- end}}
</ol>
{{- range .Coaching}}
<div class="coaching">
<p><strong>Say:</strong> {{esc .Say}}</p>
{{- if .Watch}}
<p><strong>Watch for:</strong> {{esc .Watch}}</p>
{{- end}}
</div>
{{- end}}
</section>
{{- end}}
{{- if .Differentiation}}
<section class="differentiation">
<h2>Differentiation</h2>
<dl>
{{- range .Differentiation}}
<dt>{{esc .Profile}}</dt>
<dd>{{esc .Guidance}}</dd>
{{- end}}
</dl>
</section>
{{- end}}
{{- if .GeneralCoaching}}
<section class="coaching-notes">
<h2>Coaching Notes</h2>
{{- range .GeneralCoaching}}
<div class="coaching">
<p><strong>Say:</strong> {{esc .Say}}</p>
{{- if .Watch}}
<p><strong>Watch for:</strong> {{esc .Watch}}</p>
{{- end}}
</div>
{{- end}}
</section>
{{- end}}
</main>
</body>
</html>
`))
