package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageYAML = `version: "1.0"
components:
  - id: c1
    type: Card
    props:
      title: Users
  - id: b1
    type: Button
    parentId: c1
    props:
      children: Reload
      type: primary
`

func TestRun_YAMLFileToStdout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.page.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pageYAML), 0o600))

	var out, errOut bytes.Buffer
	require.NoError(t, run([]string{"-check", path}, nil, &out, &errOut))
	assert.Contains(t, out.String(), "import { Button, Card } from 'antd';")
	assert.Contains(t, out.String(), `<Button type="primary">Reload</Button>`)
	assert.Empty(t, errOut.String())
}

func TestRun_StdinMarkupToFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "Page.jsx")
	in := strings.NewReader(`{"version":"1.0","components":[{"id":"d","type":"Divider","props":{}}]}`)
	require.NoError(t, run([]string{"-markup", "-o", dst}, in, &bytes.Buffer{}, &bytes.Buffer{}))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "<Divider />\n", string(got))
}

func TestRun_Errors(t *testing.T) {
	var sink bytes.Buffer
	err := run([]string{"-format", "xml"}, strings.NewReader(""), &sink, &sink)
	assert.ErrorContains(t, err, "unknown page format")

	err = run(nil, strings.NewReader(`{"version":"2.0"}`), &sink, &sink)
	assert.ErrorContains(t, err, "unsupported version")

	err = run([]string{"a.json", "b.json"}, nil, &sink, &sink)
	assert.ErrorContains(t, err, "at most one input")
}

func TestRun_CatalogOverlay(t *testing.T) {
	dir := t.TempDir()
	cat := filepath.Join(dir, "extra.cue")
	require.NoError(t, os.WriteFile(cat, []byte(`components: [{
	type: "Banner", label: "Banner", category: "feedback", module: "@fundam/antd", render: "alert"
	defaultProps: {}
	propTypes: [{name: "message", kind: "string", label: "Message"}]
}]`), 0o600))

	in := strings.NewReader(`{"version":"1.0","components":[{"id":"x","type":"Banner","props":{"message":"hi"}}]}`)
	var out bytes.Buffer
	require.NoError(t, run([]string{"-catalog", cat}, in, &out, &bytes.Buffer{}))
	assert.Contains(t, out.String(), "import { Banner } from '@fundam/antd';")
	assert.Contains(t, out.String(), `<Banner message="hi" />`)
}
