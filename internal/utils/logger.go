package utils

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	log1 "github.com/charmbracelet/log"
)

// Log 全局日志，Init 之前也可直接使用（默认 info 级别）
var Log = log1.NewWithOptions(os.Stderr, log1.Options{
	ReportTimestamp: true,
	TimeFormat:      time.DateTime,
})

// Init 按配置设置日志级别与样式
func Init(level string) {
	InitWithWriter(os.Stderr, level)
}

func InitWithWriter(w io.Writer, level string) {
	Log = log1.NewWithOptions(w, log1.Options{
		//ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           ParseLevel(level),
	})
	styles := log1.DefaultStyles()
	styles.Levels[log1.InfoLevel] = lipgloss.NewStyle().
		SetString("INFO🌙").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("#90EE9080")).
		Foreground(lipgloss.Color("#006400FF")).Bold(true)

	styles.Levels[log1.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("#FFA500FF")).
		Foreground(lipgloss.Color("#000000FF")).Bold(true)

	styles.Levels[log1.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR🔥").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("#FF0000FF")).
		Foreground(lipgloss.Color("#00FFFF00")).Bold(true)

	styles.Levels[log1.FatalLevel] = lipgloss.NewStyle().
		SetString("FATAL⚡️").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("#000000FF")).
		Foreground(lipgloss.Color("#00FFFF00")).Bold(true)
	Log.SetStyles(styles)
}

// ParseLevel 未知级别回退到 info
func ParseLevel(level string) log1.Level {
	lvl, err := log1.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log1.InfoLevel
	}
	return lvl
}
