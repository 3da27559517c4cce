package cmds

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/corbat-tech/coco/pkg/tools"
)

const maxToolOutput = 64 * 1024

type shellToolArgs struct {
	Command string `json:"command" jsonschema:"description=Shell command to execute"`
}

type readFileArgs struct {
	Path string `json:"path" jsonschema:"description=File path relative to the project"`
}

type listFilesArgs struct {
	Path string `json:"path,omitempty" jsonschema:"description=Directory to list, defaults to the project root"`
}

// registerDefaultTools installs the built-in tool set. Only shell needs
// confirmation; the read-only tools run silently.
func registerDefaultTools(registry tools.Registry, project string) error {
	shell, err := tools.NewTool("shell", "Execute a shell command in the project directory",
		shellToolArgs{}, shellTool(project), tools.WithRequiresConfirmation(true))
	if err != nil {
		return err
	}
	readFile, err := tools.NewTool("read_file", "Read a file from the project",
		readFileArgs{}, readFileTool(project))
	if err != nil {
		return err
	}
	listFiles, err := tools.NewTool("list_files", "List directory entries in the project",
		listFilesArgs{}, listFilesTool(project))
	if err != nil {
		return err
	}

	for _, def := range []*tools.ToolDefinition{shell, readFile, listFiles} {
		if err := registry.Register(*def); err != nil {
			return err
		}
	}
	return nil
}

func shellTool(project string) tools.ToolFunc {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		var a shellToolArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, errors.Wrap(err, "parse arguments")
		}
		if strings.TrimSpace(a.Command) == "" {
			return nil, errors.New("command is empty")
		}

		cmd := exec.CommandContext(ctx, "sh", "-c", a.Command)
		cmd.Dir = project
		out, err := cmd.CombinedOutput()
		if err != nil {
			// the output usually explains the failure better than the exit code
			return nil, errors.Errorf("%v: %s", err, truncateOutput(string(out)))
		}
		return truncateOutput(string(out)), nil
	}
}

func readFileTool(project string) tools.ToolFunc {
	return func(_ context.Context, args json.RawMessage) (any, error) {
		var a readFileArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, errors.Wrap(err, "parse arguments")
		}
		path, err := projectPath(project, a.Path)
		if err != nil {
			return nil, err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return truncateOutput(string(b)), nil
	}
}

func listFilesTool(project string) tools.ToolFunc {
	return func(_ context.Context, args json.RawMessage) (any, error) {
		var a listFilesArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, errors.Wrap(err, "parse arguments")
		}
		path, err := projectPath(project, a.Path)
		if err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			names = append(names, name)
		}
		return names, nil
	}
}

// projectPath resolves rel inside the project and refuses escapes via "..".
func projectPath(project, rel string) (string, error) {
	if rel == "" {
		return project, nil
	}
	path := filepath.Join(project, rel)
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	root, err := filepath.Abs(project)
	if err != nil {
		return "", err
	}
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", errors.Errorf("path %q is outside the project", rel)
	}
	return abs, nil
}

func truncateOutput(s string) string {
	if len(s) > maxToolOutput {
		return s[:maxToolOutput] + "\n[output truncated]"
	}
	return s
}
