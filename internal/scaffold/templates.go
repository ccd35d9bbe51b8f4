package scaffold

const apiRAML = `#%RAML 0.8
---
title: {{quote .Title}}
version: v{{.Version}}
baseUri: {{quote .BaseURI}}
mediaType: application/json
documentation:
  - title: Overview
    content: {{quote .Description}}
schemas:
  - {{.Schema}}: !include schema/{{.Resource}}.json
/{{.Resource}}:
  description: {{quote (printf "Collection of %s items." .Title)}}
  post:
    description: Create an item.
    body:
      application/json:
        schema: {{.Schema}}
        example: !include examples/{{.Resource}}.json
    responses:
      201:
        description: The item was created.
  /{{printf "{%s}" .Param}}:
    description: {{quote (printf "A single %s item." .Title)}}
    get:
      description: Fetch one item.
      responses:
        200:
          body:
            application/json:
              schema: {{.Schema}}
              example: !include examples/{{.Resource}}.json
    delete:
      description: Remove one item.
      responses:
        204:
          description: The item was removed.
`

const resourceSchema = `{
  "$schema": "http://json-schema.org/draft-04/schema#",
  "title": {{quote .Title}},
  "type": "object",
  "properties": {
    "id": {"$ref": "common.json#/definitions/identifier"},
    "name": {"type": "string", "minLength": 1},
    "tags": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["id", "name"]
}
`

const commonSchema = `{
  "$schema": "http://json-schema.org/draft-04/schema#",
  "definitions": {
    "identifier": {
      "type": "string",
      "pattern": "^[a-z0-9-]+$"
    }
  }
}
`

const resourceExample = `{
  "id": "{{.Resource}}-1",
  "name": {{quote .Title}},
  "tags": ["sample"]
}
`

const readme = `# {{.Title}}

{{.Description}}

Version {{.Version}}{{if .AuthorName}}, maintained by {{.AuthorName}}{{if .AuthorEmail}} <{{.AuthorEmail}}>{{end}}{{end}}.

## Layout

- ` + "`api.raml`" + `: the RAML 0.8 API description
- ` + "`schema/`" + `: JSON schemas, referenced from the API and from each other with ` + "`$ref`" + `
- ` + "`examples/`" + `: example payloads, validated against their schemas on every build

## Build

` + "```" + `
ramlgen build --config ramlgen.yaml
` + "```" + `

The build lints the description, inlines every schema reference, validates
the examples and writes the result to ` + "`dist/`" + `.
`

const licenseText = `{{if eq .License "MIT"}}MIT License

Copyright (c) {{.Year}} {{.AuthorName}}

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
{{else if eq .License "Apache-2.0"}}Copyright {{.Year}} {{.AuthorName}}

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
{{else}}Copyright {{.Year}} {{.AuthorName}}

Licensed under {{.License}}.
{{end}}`

const gitignore = `dist/
*.tmp-*
.DS_Store
`

const editorconfig = `root = true

[*]
charset = utf-8
end_of_line = lf
insert_final_newline = true
indent_style = space
indent_size = 2
trim_trailing_whitespace = true
`

const buildConfig = `# ramlgen build configuration. Paths are relative to this file.
input: [api.raml]
schemaDir: schema
out: dist
format: raml
policy: fail-after-error
`
