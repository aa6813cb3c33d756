// Package mcpsource bridges MCP server resources into tavernkit's
// programmatic InjectionRegistry (§4.F): each listed resource becomes an
// injection at the caller-chosen position without the host writing glue code.
// Grounded on the teacher's internal/mcpclient.Manager (mcppkg.NewClient +
// Connect over command/HTTP transport, then a Tools-style paging iterator
// — mirrored here for Resources/ReadResource).
package mcpsource

import (
	"context"
	"fmt"
	"os/exec"

	mcppkg "github.com/modelcontextprotocol/go-sdk/mcp"

	"tavernkit"
)

// Connect dials an MCP server over stdio (command != "") or Streamable
// HTTP (url != ""), mirroring the teacher's RegisterOne dispatch.
func Connect(ctx context.Context, clientName, command string, args []string, url string) (*mcppkg.ClientSession, error) {
	client := mcppkg.NewClient(&mcppkg.Implementation{Name: clientName, Version: "tavernkit"}, &mcppkg.ClientOptions{})
	switch {
	case command != "":
		return client.Connect(ctx, &mcppkg.CommandTransport{Command: buildCommand(command, args)}, nil)
	case url != "":
		return client.Connect(ctx, &mcppkg.StreamableClientTransport{Endpoint: url}, nil)
	default:
		return nil, fmt.Errorf("mcpsource: neither command nor url provided")
	}
}

// SyncResources lists every resource exposed by session and registers one
// injection per resource into reg, replacing any previous registration
// under the same id ("mcp:" + resource URI). Injections are tagged
// Scan: true so lore entries can also match against their content.
func SyncResources(ctx context.Context, session *mcppkg.ClientSession, reg *tavernkit.InjectionRegistry, position tavernkit.InjectionPosition) error {
	for res, err := range session.Resources(ctx, nil) {
		if err != nil {
			return fmt.Errorf("mcpsource: list resources: %w", err)
		}
		content, err := readResourceText(ctx, session, res.URI)
		if err != nil {
			continue
		}
		if content == "" {
			reg.Remove("mcp:" + res.URI)
			continue
		}
		if err := reg.Register(tavernkit.Injection{
			ID:       "mcp:" + res.URI,
			Content:  content,
			Position: position,
			Role:     tavernkit.RoleSystem,
			Scan:     true,
		}); err != nil {
			return fmt.Errorf("mcpsource: register %s: %w", res.URI, err)
		}
	}
	return nil
}

func readResourceText(ctx context.Context, session *mcppkg.ClientSession, uri string) (string, error) {
	result, err := session.ReadResource(ctx, &mcppkg.ReadResourceParams{URI: uri})
	if err != nil {
		return "", fmt.Errorf("mcpsource: read resource %s: %w", uri, err)
	}
	var text string
	for _, c := range result.Contents {
		text += c.Text
	}
	return text, nil
}

func buildCommand(command string, args []string) *exec.Cmd {
	return exec.Command(command, args...)
}
