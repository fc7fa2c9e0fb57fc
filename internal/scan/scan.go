package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/searchpdf/internal/domain"
	"github.com/John-Robertt/searchpdf/internal/naming"
)

// DirectoryAccessError 表示列目录失败（不存在/无权限/其它 IO 错误）。
// 上层按约定把该目录视为空目录：记录后跳过，不影响其它目录。
type DirectoryAccessError struct {
	Path string
	Err  error
}

func (e *DirectoryAccessError) Error() string {
	switch {
	case e.NotFound():
		return fmt.Sprintf("目录不存在：%q", e.Path)
	case e.PermissionDenied():
		return fmt.Sprintf("无权限访问目录：%q", e.Path)
	default:
		return fmt.Sprintf("读取目录失败：%q：%v", e.Path, e.Err)
	}
}

func (e *DirectoryAccessError) Unwrap() error { return e.Err }

func (e *DirectoryAccessError) NotFound() bool { return errors.Is(e.Err, fs.ErrNotExist) }

func (e *DirectoryAccessError) PermissionDenied() bool { return errors.Is(e.Err, fs.ErrPermission) }

// 测试可替换，用于模拟权限错误等难以在 t.TempDir 中构造的场景。
var (
	readDirFunc = os.ReadDir
	walkDirFunc = filepath.WalkDir
)

// ListFiles 返回 dir 下的非目录条目名（保持 ReadDir 的顺序）。
//
// 失败时返回空列表 + *DirectoryAccessError：调用方据此把目录当作“无事可做”。
func ListFiles(dir string) ([]string, error) {
	entries, err := readDirFunc(dir)
	if err != nil {
		return []string{}, &DirectoryAccessError{Path: dir, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Classify 按文件名后缀规则把 names 划分为 FileSet（纯函数，不访问文件系统）。
func Classify(names []string) domain.FileSet {
	set := domain.FileSet{
		Images:        []string{},
		PDFs:          []string{},
		Searchable:    []string{},
		NonSearchable: []string{},
		Stale:         []string{},
	}
	for _, n := range names {
		switch {
		case naming.IsTemp(n):
			set.Stale = append(set.Stale, n)
		case naming.IsPDF(n):
			set.PDFs = append(set.PDFs, n)
			if naming.IsSearchable(n) {
				set.Searchable = append(set.Searchable, n)
			} else {
				set.NonSearchable = append(set.NonSearchable, n)
			}
		case naming.IsImage(n):
			set.Images = append(set.Images, n)
		}
	}
	return set
}

// WalkDirs 返回 root 下（含 root 自身）的全部目录节点，并应用目录排除规则。
//
// 规则：
// - 每个目录都是一个独立单元（不只是叶子目录）
// - excludeDirs：相对 root 的路径（若是绝对路径，则按绝对路径处理）
// - 无法读取的子树：记录为 DirectoryAccessError 并跳过，不中断遍历
//
// 输出按路径字典序排序，保证每轮处理顺序稳定。
func WalkDirs(root string, excludeDirs []string) ([]string, []*DirectoryAccessError) {
	root = filepath.Clean(root)
	excluded := buildExcluded(root, excludeDirs)

	dirs := make([]string, 0, 16)
	var denied []*DirectoryAccessError
	_ = walkDirFunc(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// ReadDir 失败时 WalkDir 会对同一目录第二次回调：撤销上一步的登记，只记错误。
			if n := len(dirs); n > 0 && dirs[n-1] == path {
				dirs = dirs[:n-1]
			}
			denied = append(denied, &DirectoryAccessError{Path: path, Err: walkErr})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isExcluded(path, excluded) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})

	sort.Strings(dirs)
	return dirs, denied
}

func buildExcluded(root string, excludeDirs []string) []string {
	excluded := make([]string, 0, len(excludeDirs))
	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, base+sep)
}
