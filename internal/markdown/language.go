package markdown

import (
	"path"
	"strings"
)

var languageByExtension = map[string]string{
	"js":    "javascript",
	"jsx":   "javascript",
	"cjs":   "javascript",
	"mjs":   "javascript",
	"ts":    "typescript",
	"tsx":   "typescript",
	"json":  "json",
	"md":    "markdown",
	"go":    "go",
	"py":    "python",
	"rb":    "ruby",
	"rs":    "rust",
	"java":  "java",
	"kt":    "kotlin",
	"c":     "c",
	"h":     "c",
	"cpp":   "cpp",
	"cc":    "cpp",
	"hpp":   "cpp",
	"cs":    "csharp",
	"php":   "php",
	"swift": "swift",
	"sh":    "bash",
	"bash":  "bash",
	"zsh":   "bash",
	"yaml":  "yaml",
	"yml":   "yaml",
	"toml":  "toml",
	"xml":   "xml",
	"html":  "html",
	"css":   "css",
	"scss":  "scss",
	"sql":   "sql",
	"proto": "protobuf",
	"mod":   "go",
}

// DetectLanguage returns the fence tag for filePath, or "" when the extension is unknown.
func DetectLanguage(filePath string) string {
	extension := strings.TrimPrefix(strings.ToLower(path.Ext(filePath)), ".")
	return languageByExtension[extension]
}
