package tools

import (
	"context"
	"errors"
	"log"

	"GoTaskAgent/app/utils"
)

const (
	file_read             = "file_read"
	file_write            = "file_write"
	file_append           = "file_append"
	file_delete           = "file_delete"
	file_list             = "file_list"
	file_copy             = "file_copy"
	file_move             = "file_move"
	file_search           = "file_search"
	file_mkdir            = "file_mkdir"
	shell_exec            = "shell_exec"
	browser_fetch         = "browser_fetch"
	browser_extract_text  = "browser_extract_text"
	browser_extract_links = "browser_extract_links"
	browser_extract_meta  = "browser_extract_meta"
)

type Tool struct {
	Name        string                                          `json:"name"`
	Description string                                          `json:"description"`
	Parameters  Parameter                                       `json:"parameters"`
	HandlerFunc func(context.Context, ToolTask) (string, error) `json:"-"`
}

type Parameter struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required"`
}

type ToolTask struct {
	Key        string         `json:"key"`
	Parameters map[string]any `json:"parameters"`
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// Builtins returns the builtin tool set sandboxed under workspace.
func Builtins(workspace string) []Tool {
	sb := newSandbox(workspace)
	return []Tool{
		{
			Name:        file_read,
			Description: "Read the content of a file inside the workspace.",
			Parameters: Parameter{
				Type: "object",
				Properties: map[string]any{
					"path": stringProp("Path of the file to read."),
				},
				Required: []string{"path"},
			},
			HandlerFunc: sb.fileHandler,
		},
		{
			Name:        file_write,
			Description: "Create a file or overwrite its content.",
			Parameters: Parameter{
				Type: "object",
				Properties: map[string]any{
					"path":    stringProp("Path of the file to write to."),
					"content": stringProp("Content to write into the file."),
				},
				Required: []string{"path", "content"},
			},
			HandlerFunc: sb.fileHandler,
		},
		{
			Name:        file_append,
			Description: "Append content to the end of an existing file, creating it if missing.",
			Parameters: Parameter{
				Type: "object",
				Properties: map[string]any{
					"path":    stringProp("Path of the file to append to."),
					"content": stringProp("Content to append."),
				},
				Required: []string{"path", "content"},
			},
			HandlerFunc: sb.fileHandler,
		},
		{
			Name:        file_delete,
			Description: "Delete a file inside the workspace.",
			Parameters: Parameter{
				Type: "object",
				Properties: map[string]any{
					"path": stringProp("Path of the file to delete."),
				},
				Required: []string{"path"},
			},
			HandlerFunc: sb.fileHandler,
		},
		{
			Name:        file_list,
			Description: "List the workspace directory tree.",
			Parameters: Parameter{
				Type: "object",
				Properties: map[string]any{
					"directory": stringProp("Directory to list, relative to the workspace. Empty lists the workspace root."),
				},
				Required: []string{},
			},
			HandlerFunc: sb.fileHandler,
		},
		{
			Name:        file_copy,
			Description: "Copy a file or directory to a new location inside the workspace.",
			Parameters: Parameter{
				Type: "object",
				Properties: map[string]any{
					"source":      stringProp("Path of the file or directory to copy."),
					"destination": stringProp("Destination path."),
				},
				Required: []string{"source", "destination"},
			},
			HandlerFunc: sb.fileHandler,
		},
		{
			Name:        file_move,
			Description: "Move or rename a file inside the workspace.",
			Parameters: Parameter{
				Type: "object",
				Properties: map[string]any{
					"source":      stringProp("Path of the file to move."),
					"destination": stringProp("Destination path."),
				},
				Required: []string{"source", "destination"},
			},
			HandlerFunc: sb.fileHandler,
		},
		{
			Name:        file_search,
			Description: "Search for a text pattern in a file or directory.",
			Parameters: Parameter{
				Type: "object",
				Properties: map[string]any{
					"path":    stringProp("File or directory to search in."),
					"pattern": stringProp("Regular expression to search for."),
					"recursive": map[string]any{
						"type":        "boolean",
						"description": "Recurse into subdirectories when path is a directory.",
					},
				},
				Required: []string{"path", "pattern"},
			},
			HandlerFunc: sb.fileHandler,
		},
		{
			Name:        file_mkdir,
			Description: "Create a directory inside the workspace, including parents.",
			Parameters: Parameter{
				Type: "object",
				Properties: map[string]any{
					"directory": stringProp("Directory path to create."),
				},
				Required: []string{"directory"},
			},
			HandlerFunc: sb.fileHandler,
		},
		{
			Name:        shell_exec,
			Description: "Run a single allow-listed command in the workspace. No shell operators, one command at a time.",
			Parameters: Parameter{
				Type: "object",
				Properties: map[string]any{
					"command": stringProp("The command line to run."),
				},
				Required: []string{"command"},
			},
			HandlerFunc: sb.commandHandler,
		},
		{
			Name:        browser_fetch,
			Description: "Fetch the HTML content of a web page.",
			Parameters: Parameter{
				Type: "object",
				Properties: map[string]any{
					"url": stringProp("The http(s) URL to fetch."),
				},
				Required: []string{"url"},
			},
			HandlerFunc: webHandler,
		},
		{
			Name:        browser_extract_text,
			Description: "Extract the visible text blocks from an HTML document.",
			Parameters: Parameter{
				Type: "object",
				Properties: map[string]any{
					"html": stringProp("The HTML document to extract from."),
				},
				Required: []string{"html"},
			},
			HandlerFunc: webHandler,
		},
		{
			Name:        browser_extract_links,
			Description: "Extract all link targets from an HTML document.",
			Parameters: Parameter{
				Type: "object",
				Properties: map[string]any{
					"html": stringProp("The HTML document to extract from."),
				},
				Required: []string{"html"},
			},
			HandlerFunc: webHandler,
		},
		{
			Name:        browser_extract_meta,
			Description: "Extract the title and meta tags from an HTML document.",
			Parameters: Parameter{
				Type: "object",
				Properties: map[string]any{
					"html": stringProp("The HTML document to extract from."),
				},
				Required: []string{"html"},
			},
			HandlerFunc: webHandler,
		},
	}
}

func withParsed[T any](params any, op string, f func(T) (string, error)) (string, error) {
	v, err := utils.CastAny[T](params)
	if err != nil {
		log.Printf("❌ Error parsing %s action: %v\n", op, err)
		return "", err
	}
	if v == nil {
		log.Printf("❌ %s action is nil\n", op)
		return "", errors.New("action is nil")
	}
	return f(*v)
}
