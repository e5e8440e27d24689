package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/invopop/jsonschema"

	"github.com/mrnugget/agent-openai-gpt-oss-20b/errors"
)

// fileSystem resolves tool paths against a base directory. There is no
// containment check: absolute paths and ".." are used as given.
type fileSystem struct {
	dir string
}

func (f fileSystem) resolve(path string) string {
	if f.dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(f.dir, path)
}

func toolError(name Name, format string, a ...any) error {
	return errors.E(errors.KindTool, string(name), fmt.Errorf(format, a...))
}

type ReadFileArgs struct {
	Path string `json:"path" jsonschema_description:"Relative path of the file to read."`
}

var readFileSchema = GenerateSchema[ReadFileArgs]()

// ReadFileTool implements the tool for reading a file.
type ReadFileTool struct {
	fs fileSystem
}

func (t *ReadFileTool) Name() Name { return ReadFile }
func (t *ReadFileTool) Description() string {
	return "Reads the full text content of the file at a relative path. Do not use this with directory names."
}
func (t *ReadFileTool) InputSchema() *jsonschema.Schema { return readFileSchema }

func (t *ReadFileTool) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	var args ReadFileArgs
	if err := decodeArgs(t, raw, &args); err != nil {
		return "", err
	}
	if args.Path == "" {
		return "", errors.E(errors.KindInvalidArguments, string(ReadFile), fmt.Errorf("path must not be empty"))
	}

	p := t.fs.resolve(args.Path)
	fi, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", toolError(ReadFile, "file does not exist: %s", args.Path)
		}
		return "", toolError(ReadFile, "failed to read file '%s': %w", args.Path, err)
	}
	if fi.IsDir() {
		return "", toolError(ReadFile, "path is a directory: %s", args.Path)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", toolError(ReadFile, "failed to read file '%s': %w", args.Path, err)
	}
	if !utf8.Valid(data) {
		return "", toolError(ReadFile, "file is not valid UTF-8 text: %s", args.Path)
	}
	return string(data), nil
}

type ListFilesArgs struct {
	Path string `json:"path,omitempty" jsonschema_description:"Optional relative directory path. Defaults to the current directory."`
}

var listFilesSchema = GenerateSchema[ListFilesArgs]()

// ListFilesTool lists the direct entries of a directory.
type ListFilesTool struct {
	fs fileSystem
}

func (t *ListFilesTool) Name() Name { return ListFiles }
func (t *ListFilesTool) Description() string {
	return "Lists the files and directories directly inside a relative path. Directory names end with a slash."
}
func (t *ListFilesTool) InputSchema() *jsonschema.Schema { return listFilesSchema }

// Execute returns a JSON array of entry names sorted on the decorated names,
// so "a/" sorts against "a.txt" by its trailing slash.
func (t *ListFilesTool) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	var args ListFilesArgs
	if err := decodeArgs(t, raw, &args); err != nil {
		return "", err
	}
	dir := args.Path
	if dir == "" {
		dir = "."
	}

	p := t.fs.resolve(dir)
	fi, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", toolError(ListFiles, "directory does not exist: %s", dir)
		}
		return "", toolError(ListFiles, "failed to list '%s': %w", dir, err)
	}
	if !fi.IsDir() {
		return "", toolError(ListFiles, "path is not a directory: %s", dir)
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return "", toolError(ListFiles, "failed to list '%s': %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	b, err := json.Marshal(names)
	if err != nil {
		return "", toolError(ListFiles, "failed to encode listing: %w", err)
	}
	return string(b), nil
}

type EditFileArgs struct {
	Path   string `json:"path" jsonschema_description:"Relative path of the file to edit or create."`
	OldStr string `json:"old_str" jsonschema_description:"Text to search for. Every occurrence is replaced. Use an empty string to create a file."`
	NewStr string `json:"new_str" jsonschema_description:"Text to replace old_str with."`
}

var editFileSchema = GenerateSchema[EditFileArgs]()

// EditFileTool replaces text in a file or creates it.
type EditFileTool struct {
	fs fileSystem
}

func (t *EditFileTool) Name() Name { return EditFile }
func (t *EditFileTool) Description() string {
	return "Edits a text file by replacing every occurrence of old_str with new_str. " +
		"If the file does not exist and old_str is empty the file is created with new_str as its content."
}
func (t *EditFileTool) InputSchema() *jsonschema.Schema { return editFileSchema }

// Execute applies the edit and returns "OK".
//
//   - old_str == new_str always fails.
//   - Missing file: created (with parents) when old_str is empty, otherwise
//     "file does not exist".
//   - Existing file, empty old_str: the content becomes new_str.
//   - Existing file: old_str must occur; all occurrences are replaced.
func (t *EditFileTool) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	var args EditFileArgs
	if err := decodeArgs(t, raw, &args); err != nil {
		return "", err
	}
	if args.Path == "" {
		return "", errors.E(errors.KindInvalidArguments, string(EditFile), fmt.Errorf("path must not be empty"))
	}
	if args.OldStr == args.NewStr {
		return "", toolError(EditFile, "old_str and new_str must be different")
	}

	p := t.fs.resolve(args.Path)
	data, err := os.ReadFile(p)
	switch {
	case err != nil && errors.Is(err, fs.ErrNotExist):
		if args.OldStr != "" {
			return "", toolError(EditFile, "file does not exist: %s", args.Path)
		}
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", toolError(EditFile, "failed to create directory '%s': %w", dir, err)
			}
		}
		if err := os.WriteFile(p, []byte(args.NewStr), 0o644); err != nil {
			return "", toolError(EditFile, "failed to create file '%s': %w", args.Path, err)
		}
		return "OK", nil
	case err != nil:
		return "", toolError(EditFile, "failed to read file '%s': %w", args.Path, err)
	}

	content := args.NewStr
	if args.OldStr != "" {
		old := string(data)
		if !strings.Contains(old, args.OldStr) {
			return "", toolError(EditFile, "old_str not found in file: %s", args.Path)
		}
		content = strings.ReplaceAll(old, args.OldStr, args.NewStr)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return "", toolError(EditFile, "failed to write file '%s': %w", args.Path, err)
	}
	return "OK", nil
}
