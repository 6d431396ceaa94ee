// Package promptreader turns YAML prompt definitions into MCP prompts whose message
// texts are Go templates over the prompt arguments.
package promptreader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"text/template"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"
)

// TemplatedTextContent is text content rendered from its template when serialized.
type TemplatedTextContent struct {
	mcp.TextContent `json:",inline"`
	Template        *template.Template `json:"-"`
	Arguments       map[string]string  `json:"-"`
}

func (ttc TemplatedTextContent) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := ttc.Template.Execute(&buf, ttc.Arguments); err != nil {
		return nil, err
	}
	ttc.Text = buf.String()
	return json.Marshal(ttc.TextContent)
}

type messageDef struct {
	Role    mcp.Role `yaml:"role"`
	Content struct {
		mcp.TextContent `yaml:",inline"`
	} `yaml:"content"`
}

type promptDef struct {
	mcp.Prompt `yaml:",inline"`
	Messages   []messageDef `yaml:"messages"`
}

// LoadPromptsFromYAML parses a prompts document into server prompts.
func LoadPromptsFromYAML(data []byte) ([]server.ServerPrompt, error) {
	var doc struct {
		Prompts []promptDef `yaml:"prompts"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing prompts YAML: %w", err)
	}

	result := make([]server.ServerPrompt, 0, len(doc.Prompts))
	for _, def := range doc.Prompts {
		handler, err := newHandler(def)
		if err != nil {
			return nil, err
		}
		result = append(result, server.ServerPrompt{Prompt: def.Prompt, Handler: handler})
	}
	return result, nil
}

// LoadPromptsFromFS loads every *.yaml file of dir in lexical order.
func LoadPromptsFromFS(fsys fs.FS, dir string) ([]server.ServerPrompt, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var prompts []server.ServerPrompt
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		// fs paths always use forward slashes
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		loaded, err := LoadPromptsFromYAML(data)
		if err != nil {
			return nil, fmt.Errorf("error loading prompts from %s: %w", entry.Name(), err)
		}
		prompts = append(prompts, loaded...)
	}
	return prompts, nil
}

func newHandler(def promptDef) (server.PromptHandlerFunc, error) {
	if len(def.Messages) == 0 {
		return nil, fmt.Errorf("prompt %s has no messages", def.GetName())
	}

	tmpls := template.New("").Option("missingkey=error")
	for idx, msg := range def.Messages {
		if msg.Content.Type != "text" {
			return nil, fmt.Errorf("prompt %s message %d has unsupported content type %s",
				def.GetName(), idx, msg.Content.Type)
		}
		if msg.Content.Text == "" {
			return nil, fmt.Errorf("prompt %s message %d has no text defined", def.GetName(), idx)
		}
		if _, err := tmpls.New(strconv.Itoa(idx)).Parse(msg.Content.Text); err != nil {
			return nil, fmt.Errorf("error parsing template for prompt %s: %w", def.GetName(), err)
		}
	}

	return func(_ context.Context, rq mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		if rq.Params.Name != def.GetName() {
			return nil, fmt.Errorf("prompt %s not found", rq.Params.Name)
		}
		for _, arg := range def.Arguments {
			if arg.Required && rq.Params.Arguments[arg.Name] == "" {
				return nil, fmt.Errorf("prompt %s requires argument %q", def.GetName(), arg.Name)
			}
		}
		messages := make([]mcp.PromptMessage, 0, len(def.Messages))
		for idx, msg := range def.Messages {
			messages = append(messages, mcp.NewPromptMessage(msg.Role, TemplatedTextContent{
				TextContent: mcp.TextContent{
					Type:      msg.Content.Type,
					Annotated: msg.Content.Annotated,
				},
				Template:  tmpls.Lookup(strconv.Itoa(idx)),
				Arguments: rq.Params.Arguments,
			}))
		}
		return &mcp.GetPromptResult{
			Description: def.Description,
			Messages:    messages,
		}, nil
	}, nil
}
