package decisionflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileDecisionLog is an implementation of DecisionLog that logs to a file.
// A file is created per thread. The file is formatted as newline-delimited
// JSON.
type FileDecisionLog struct {
	directory string
}

func NewFileDecisionLog(directory string) *FileDecisionLog {
	return &FileDecisionLog{directory: directory}
}

func (l *FileDecisionLog) threadLogPath(threadID string) string {
	return filepath.Join(l.directory, fmt.Sprintf("%s.jsonl", threadID))
}

func (l *FileDecisionLog) GetDecisionHistory(ctx context.Context, threadID string) ([]*DecisionRecord, error) {
	data, err := os.ReadFile(l.threadLogPath(threadID))
	if err != nil {
		return nil, err
	}
	var records []*DecisionRecord
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		var record DecisionRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}
	return records, nil
}

func (l *FileDecisionLog) LogDecision(ctx context.Context, record *DecisionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	filePath := l.threadLogPath(record.ThreadID)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}
