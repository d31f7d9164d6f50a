// Copyright 2025 The braingate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package localtool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// maxTextBytes caps plain-text reads; larger files are truncated.
const maxTextBytes = 256 * 1024

type readFileArgs struct {
	Path string `json:"path" jsonschema:"required,description=Path of the file to read. PDF/DOCX/XLSX files are converted to text."`
}

type listDirectoryArgs struct {
	Path string `json:"path" jsonschema:"required,description=Path of the directory to list."`
}

type fileInfoArgs struct {
	Path string `json:"path" jsonschema:"required,description=Path of the file or directory to inspect."`
}

// sandbox restricts file access to a set of workspace roots.
type sandbox struct {
	roots []string
}

func newSandbox(roots []string) (*sandbox, error) {
	if len(roots) == 0 {
		roots = []string{"."}
	}
	abs := make([]string, 0, len(roots))
	for _, root := range roots {
		resolved, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve workspace root %q: %w", root, err)
		}
		abs = append(abs, resolved)
	}
	return &sandbox{roots: abs}, nil
}

// resolve returns the absolute path if it falls under a workspace root.
func (s *sandbox) resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	for _, root := range s.roots {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			continue
		}
		if rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)) {
			return abs, nil
		}
	}
	return "", fmt.Errorf("path %q is outside the workspace", path)
}

// readFileTool reads a file, extracting text from document formats.
type readFileTool struct {
	sandbox *sandbox
}

func (t *readFileTool) Name() string { return "read_file" }

func (t *readFileTool) Description() string {
	return "Read a file from the workspace. PDF, DOCX and XLSX files are converted to plain text."
}

func (t *readFileTool) Schema() map[string]any {
	return mustSchema[readFileArgs]()
}

func (t *readFileTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return map[string]any{"error": "path is required"}, nil
	}

	abs, err := t.sandbox.resolve(path)
	if err != nil {
		return map[string]any{"error": err.Error()}, nil
	}

	if content, handled, err := extractDocument(ctx, abs); handled {
		if err != nil {
			return map[string]any{"error": err.Error()}, nil
		}
		return map[string]any{"result": content}, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return map[string]any{"error": err.Error()}, nil
	}

	truncated := false
	if len(data) > maxTextBytes {
		data = data[:maxTextBytes]
		truncated = true
	}

	result := map[string]any{"result": string(data)}
	if truncated {
		result["truncated"] = true
	}
	return result, nil
}

// listDirectoryTool lists directory entries.
type listDirectoryTool struct {
	sandbox *sandbox
}

func (t *listDirectoryTool) Name() string { return "list_directory" }

func (t *listDirectoryTool) Description() string {
	return "List the entries of a workspace directory."
}

func (t *listDirectoryTool) Schema() map[string]any {
	return mustSchema[listDirectoryArgs]()
}

func (t *listDirectoryTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}

	abs, err := t.sandbox.resolve(path)
	if err != nil {
		return map[string]any{"error": err.Error()}, nil
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return map[string]any{"error": err.Error()}, nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return map[string]any{"result": strings.Join(names, "\n")}, nil
}

// fileInfoTool reports file metadata.
type fileInfoTool struct {
	sandbox *sandbox
}

func (t *fileInfoTool) Name() string { return "file_info" }

func (t *fileInfoTool) Description() string {
	return "Report size, type and modification time for a workspace path."
}

func (t *fileInfoTool) Schema() map[string]any {
	return mustSchema[fileInfoArgs]()
}

func (t *fileInfoTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return map[string]any{"error": "path is required"}, nil
	}

	abs, err := t.sandbox.resolve(path)
	if err != nil {
		return map[string]any{"error": err.Error()}, nil
	}

	info, err := os.Stat(abs)
	if err != nil {
		return map[string]any{"error": err.Error()}, nil
	}

	kind := "file"
	if info.IsDir() {
		kind = "directory"
	}

	return map[string]any{
		"result": fmt.Sprintf("%s: %s, %d bytes, modified %s",
			info.Name(), kind, info.Size(), info.ModTime().Format(time.RFC3339)),
	}, nil
}
