package scaffolding

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Starter files use [[ ]] delimiters so handlebars and es6 braces pass
// through untouched.
const (
	leftDelim  = "[["
	rightDelim = "]]"
)

// StarterTemplate is the set of files written into a new component.
type StarterTemplate struct {
	Kind     string
	ViewFile string
	View     string
	Server   string
}

// TemplateContext holds the values starter files are rendered with.
type TemplateContext struct {
	Name         string
	Title        string
	TemplateType string
	CompilerID   string
	Version      string
}

// Title turns a component name into a human heading: "main-header" becomes
// "Main Header".
func Title(name string) string {
	words := strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return cases.Title(language.English).String(strings.Join(strings.Fields(words), " "))
}

const serverTemplate = `'use strict';

module.exports.data = function (context, callback) {
  callback(null, {
    name: context.params.name || '[[.Title]]'
  });
};
`

var starters = map[string]StarterTemplate{
	"handlebars": {
		Kind:     "handlebars",
		ViewFile: "template.hbs",
		View: `<div class="[[.Name]]">
  <h1>[[.Title]]</h1>
  <p>Hello {{name}}</p>
</div>
`,
		Server: serverTemplate,
	},
	"jade": {
		Kind:     "jade",
		ViewFile: "template.jade",
		View: `div(class="[[.Name]]")
  h1 [[.Title]]
  p Hello #{name}
`,
		Server: serverTemplate,
	},
	"es6": {
		Kind:     "es6",
		ViewFile: "template.js",
		View: "export default (model) => `<div class=\"[[.Name]]\">\n" +
			"  <h1>[[.Title]]</h1>\n" +
			"  <p>Hello ${model.name}</p>\n" +
			"</div>`;\n",
		Server: serverTemplate,
	},
}

// fallbackStarter serves template types registered at runtime.
var fallbackStarter = StarterTemplate{
	Kind:     "html",
	ViewFile: "template.html",
	View: `<div class="[[.Name]]">
  <h1>[[.Title]]</h1>
</div>
`,
	Server: serverTemplate,
}

// StarterFor returns the starter files for a built-in kind, or a plain HTML
// starter for anything else.
func StarterFor(kind string) StarterTemplate {
	if s, ok := starters[kind]; ok {
		return s
	}
	return fallbackStarter
}
