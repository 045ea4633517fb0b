// Package ignore 决定 `anc push <dir>` 上传哪些文件
package ignore

import (
	"io/fs"
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName 是用户自定义规则文件，语法与 .gitignore 相同
const FileName = ".ancignore"

// 强制生效的默认规则，防止把元数据或密钥推到服务端
var defaultRules = []string{
	// --- 关键目录 ---
	".anchorage", // 本地数据目录，推送它会无限膨胀
	".git",

	// --- 安全与配置 ---
	"config.yaml", // 可能含有 S3 Secret Key
	".env",

	// --- 常见垃圾文件 ---
	".DS_Store",
	"Thumbs.db",
}

// Matcher 判断一个相对路径是否应该被忽略
type Matcher struct {
	ignorer *gitignore.GitIgnore
}

// NewMatcher 合并默认规则与 rootPath 下的 .ancignore (若存在)
func NewMatcher(rootPath string) (*Matcher, error) {
	ignoreFilePath := filepath.Join(rootPath, FileName)

	if _, err := os.Stat(ignoreFilePath); err != nil {
		return &Matcher{ignorer: gitignore.CompileIgnoreLines(defaultRules...)}, nil
	}

	ignorer, err := gitignore.CompileIgnoreFileAndLines(ignoreFilePath, defaultRules...)
	if err != nil {
		return nil, err
	}
	return &Matcher{ignorer: ignorer}, nil
}

// Matches 返回 true 表示应该忽略
// path 是相对于根目录的路径，例如 "data/model.bin"
func (m *Matcher) Matches(path string) bool {
	if m.ignorer == nil {
		return false
	}
	return m.ignorer.MatchesPath(filepath.ToSlash(path))
}

// Walk 遍历 root 下所有未被忽略的普通文件，fn 收到相对路径和绝对路径
// 被忽略的目录整体跳过
func (m *Matcher) Walk(root string, fn func(rel, abs string, info fs.FileInfo) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if m.Matches(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(rel, path, info)
	})
}
