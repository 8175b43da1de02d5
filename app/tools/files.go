package tools

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"GoTaskAgent/app/utils"
)

// sandbox anchors every file operation under a single workspace root.
type sandbox struct {
	root string
}

func newSandbox(workspace string) *sandbox {
	abs, err := filepath.Abs(strings.TrimSpace(workspace))
	if err != nil {
		log.Printf("⚠️ Cannot resolve workspace %q: %v\n", workspace, err)
		return &sandbox{}
	}
	if err = os.MkdirAll(abs, 0o755); err != nil {
		log.Printf("⚠️ Cannot create workspace %q: %v\n", abs, err)
	}
	return &sandbox{root: filepath.Clean(abs)}
}

func (sb *sandbox) fileHandler(_ context.Context, action ToolTask) (string, error) {
	switch action.Key {
	case file_write:
		return withParsed[FileAction](action.Parameters, action.Key, func(fa FileAction) (string, error) {
			return sb.writeFile(fa.Path, fa.Content)
		})
	case file_read:
		return withParsed[FileAction](action.Parameters, action.Key, func(fa FileAction) (string, error) {
			return sb.readFile(fa.Path)
		})
	case file_append:
		return withParsed[FileAction](action.Parameters, action.Key, func(fa FileAction) (string, error) {
			return sb.appendFile(fa.Path, fa.Content)
		})
	case file_delete:
		return withParsed[FileAction](action.Parameters, action.Key, func(fa FileAction) (string, error) {
			return sb.deleteFile(fa.Path)
		})
	case file_list:
		return withParsed[DirectoryAction](action.Parameters, action.Key, func(da DirectoryAction) (string, error) {
			return sb.listFiles(da.Directory)
		})
	case file_copy:
		return withParsed[CopyAction](action.Parameters, action.Key, func(ca CopyAction) (string, error) {
			return sb.copyPath(ca.Source, ca.Destination)
		})
	case file_move:
		return withParsed[CopyAction](action.Parameters, action.Key, func(ca CopyAction) (string, error) {
			return sb.movePath(ca.Source, ca.Destination)
		})
	case file_search:
		return withParsed[SearchAction](action.Parameters, action.Key, func(sa SearchAction) (string, error) {
			return sb.searchPath(sa.Path, sa.Pattern, sa.Recursive)
		})
	case file_mkdir:
		return withParsed[DirectoryAction](action.Parameters, action.Key, func(da DirectoryAction) (string, error) {
			return sb.createDirectory(da.Directory)
		})
	}
	log.Printf("❌ Unknown tool key: %s\n", action.Key)
	return "", fmt.Errorf("unknown tool key: %s", action.Key)
}

func (sb *sandbox) safeJoin(path string) (string, error) {
	if sb.root == "" {
		return "", errors.New("sandbox root not configured")
	}
	if path == "" || path == "." {
		return sb.root, nil
	}

	p := filepath.Clean(path)
	if filepath.IsAbs(p) {
		if !withinRoot(sb.root, p) {
			return "", fmt.Errorf("absolute path outside sandbox: %s", p)
		}
		return p, nil
	}

	candidate := filepath.Clean(filepath.Join(sb.root, p))
	if !withinRoot(sb.root, candidate) {
		return "", fmt.Errorf("path escapes sandbox: %s", path)
	}
	return candidate, nil
}

func withinRoot(root, p string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(p))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

func (sb *sandbox) writeFile(filename, content string) (string, error) {
	path, err := sb.safeJoin(filename)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	log.Printf("✅ File %s written successfully.\n", path)
	return "Successfully wrote file " + path, nil
}

func (sb *sandbox) readFile(filename string) (string, error) {
	path, err := sb.safeJoin(filename)
	if err != nil {
		return "", err
	}
	if _, err = os.Stat(path); os.IsNotExist(err) {
		log.Printf("⚠️ File %s does not exist.\n", path)
		return "[ File " + filename + " was not found in path " + path + " ]", nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	log.Printf("✅ File %s read successfully.\n", path)
	return string(content), nil
}

func (sb *sandbox) appendFile(filename, content string) (string, error) {
	path, err := sb.safeJoin(filename)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err = f.WriteString(content); err != nil {
		return "", err
	}
	log.Printf("✅ Content appended to %s.\n", path)
	return "Successfully appended to file " + path, nil
}

func (sb *sandbox) deleteFile(filename string) (string, error) {
	path, err := sb.safeJoin(filename)
	if err != nil {
		return "", err
	}
	if err = os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("⚠️ File %s does not exist, nothing to delete.\n", path)
			return "File " + path + " does not exist, nothing to delete", nil
		}
		return "", err
	}
	log.Printf("✅ File %s deleted successfully.\n", path)
	return "Successfully deleted file " + path, nil
}

func (sb *sandbox) listFiles(dir string) (string, error) {
	path, err := sb.safeJoin(dir)
	if err != nil {
		return "", err
	}
	tree, err := utils.BuildTree(path, nil, nil)
	if err != nil {
		return "", err
	}
	log.Printf("✅ Directory listing generated for %s.\n", path)
	return tree, nil
}

func (sb *sandbox) copyPath(source, destination string) (string, error) {
	if source == "" || destination == "" {
		return "", errors.New("both source and destination parameters are required")
	}
	src, err := sb.safeJoin(source)
	if err != nil {
		return "", fmt.Errorf("invalid source: %w", err)
	}
	dst, err := sb.safeJoin(destination)
	if err != nil {
		return "", fmt.Errorf("invalid destination: %w", err)
	}
	info, err := os.Lstat(src)
	if err != nil {
		return "", fmt.Errorf("source does not exist: %w", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(src)
		if err != nil {
			return "", fmt.Errorf("cannot resolve symlink source: %w", err)
		}
		if !withinRoot(sb.root, target) {
			return "", fmt.Errorf("symlink target escapes sandbox: %s", target)
		}
		if info, err = os.Stat(target); err != nil {
			return "", err
		}
		src = target
	}
	if info.IsDir() {
		err = sb.copyDir(src, dst)
	} else {
		err = sb.copyFile(src, dst)
	}
	if err != nil {
		return "", fmt.Errorf("copy operation failed: %w", err)
	}
	log.Printf("✅ %s copied to %s.\n", src, dst)
	return "Successfully copied " + src + " to " + dst, nil
}

func (sb *sandbox) copyFile(source, dest string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()
	if err = os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	if st, err := os.Stat(source); err == nil {
		_ = os.Chmod(dest, st.Mode()&0o777)
	}
	return nil
}

func (sb *sandbox) copyDir(source, dest string) error {
	srcInfo, err := os.Stat(source)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(dest, srcInfo.Mode()); err != nil {
		return err
	}
	return filepath.WalkDir(source, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		// Symlinks inside the tree are skipped rather than followed.
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return sb.copyFile(path, target)
	})
}

func (sb *sandbox) movePath(source, destination string) (string, error) {
	if source == "" || destination == "" {
		return "", errors.New("both source and destination parameters are required")
	}
	src, err := sb.safeJoin(source)
	if err != nil {
		return "", fmt.Errorf("invalid source: %w", err)
	}
	dst, err := sb.safeJoin(destination)
	if err != nil {
		return "", fmt.Errorf("invalid destination: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if err = os.Rename(src, dst); err != nil {
		return "", err
	}
	log.Printf("✅ %s moved to %s.\n", src, dst)
	return "Successfully moved " + src + " to " + dst, nil
}

func (sb *sandbox) searchPath(path, pattern string, recursive bool) (string, error) {
	if pattern == "" {
		return "", errors.New("pattern is required")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}
	target, err := sb.safeJoin(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(target)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	matches := 0
	searchFile := func(file string) error {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		line := 0
		for scanner.Scan() {
			line++
			if re.MatchString(scanner.Text()) {
				matches++
				fmt.Fprintf(&b, "%s:%d: %s\n", file, line, scanner.Text())
			}
		}
		return scanner.Err()
	}

	if info.IsDir() {
		err = filepath.WalkDir(target, func(p string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if p != target && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			return searchFile(p)
		})
	} else {
		err = searchFile(target)
	}
	if err != nil {
		return "", err
	}
	if matches == 0 {
		return "No matches found for pattern " + pattern, nil
	}
	log.Printf("✅ Found %d matches for pattern %q.\n", matches, pattern)
	return b.String(), nil
}

func (sb *sandbox) createDirectory(dir string) (string, error) {
	if dir == "" {
		return "", errors.New("directory is required")
	}
	path, err := sb.safeJoin(dir)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	log.Printf("✅ Directory %s created.\n", path)
	return "Successfully created directory " + path, nil
}
