package recovery

import (
	"bytes"
	"io"

	logger "github.com/brown-csci1270/bloomdb/pkg/logger"
	backscanner "github.com/icza/backscanner"
)

// Collect the lines written after the most recent checkpoint, oldest first.
// found reports whether a checkpoint was seen at all.
func (rm *Manager) getRelevantStrings() (relevantStrings []string, found bool, err error) {
	fstats, err := rm.fd.Stat()
	if err != nil {
		return nil, false, err
	}

	scanner := backscanner.New(rm.fd, int(fstats.Size()))
	checkpointTarget := []byte("< checkpoint ")
	relevantStrings = make([]string, 0)
	for {
		line, _, err := scanner.LineBytes()
		if err != nil {
			if err == io.EOF {
				reverse(relevantStrings)
				return relevantStrings, false, nil
			}
			return nil, false, err
		}
		if len(line) == 0 {
			continue
		}
		if bytes.HasPrefix(line, checkpointTarget) {
			if _, err := FromString(string(line)); err == nil {
				reverse(relevantStrings)
				return relevantStrings, true, nil
			}
		}
		relevantStrings = append(relevantStrings, string(line))
	}
}

func reverse(strs []string) {
	for i, j := 0, len(strs)-1; i < j; i, j = i+1, j-1 {
		strs[i], strs[j] = strs[j], strs[i]
	}
}

// Parse the logs after the most recent checkpoint. Lines that cannot be
// parsed, such as a torn final write, are skipped.
func (rm *Manager) readLogs() (logs []Log, found bool, err error) {
	strs, found, err := rm.getRelevantStrings()
	if err != nil {
		return nil, false, err
	}
	logs = make([]Log, 0, len(strs))
	for _, s := range strs {
		log, err := FromString(s)
		if err != nil {
			logger.Sugar.Warnf("skipping unreadable log line %q", s)
			continue
		}
		logs = append(logs, log)
	}
	return logs, found, nil
}
