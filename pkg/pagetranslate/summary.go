package pagetranslate

import (
	"errors"
	"fmt"
	"time"
)

// ChunkResult 单个分块的翻译结果
type ChunkResult struct {
	Index      int
	Nodes      int
	Chars      int
	Translated string
	Err        error
	Duration   time.Duration
}

// OK 分块是否翻译成功
func (r ChunkResult) OK() bool {
	return r.Err == nil
}

// RunSummary 一次页面翻译的汇总
type RunSummary struct {
	RunID      string
	TargetLang string
	StartedAt  time.Time
	Duration   time.Duration
	Chunks     []ChunkResult
}

// Total 分块总数
func (s *RunSummary) Total() int {
	return len(s.Chunks)
}

// Succeeded 成功的分块数
func (s *RunSummary) Succeeded() int {
	n := 0
	for _, c := range s.Chunks {
		if c.OK() {
			n++
		}
	}
	return n
}

// Failed 失败的分块数
func (s *RunSummary) Failed() int {
	return s.Total() - s.Succeeded()
}

// TranslatedNodes 已写入译文的节点数
func (s *RunSummary) TranslatedNodes() int {
	n := 0
	for _, c := range s.Chunks {
		if c.OK() {
			n += c.Nodes
		}
	}
	return n
}

// Chars 发送给翻译服务的字符总数
func (s *RunSummary) Chars() int {
	n := 0
	for _, c := range s.Chunks {
		n += c.Chars
	}
	return n
}

// Err 合并所有分块错误，全部成功时返回 nil
func (s *RunSummary) Err() error {
	var errs []error
	for _, c := range s.Chunks {
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("chunk %d: %w", c.Index, c.Err))
		}
	}
	return errors.Join(errs...)
}

func (s *RunSummary) String() string {
	return fmt.Sprintf("run %s: %d/%d chunks translated, %d failed, %d chars in %s",
		s.RunID, s.Succeeded(), s.Total(), s.Failed(), s.Chars(), s.Duration)
}
