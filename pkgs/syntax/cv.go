package syntax

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/keskad/trackctl/pkgs/commandstation"
)

type CVEntry struct {
	Number uint16
	Value  uint16
}

// ParseCVString parses input string to array of CVEntry (CV number and value)
func ParseCVString(input string, separator string) ([]CVEntry, error) {
	if separator == "" {
		separator = "\n"
	}

	var result []CVEntry
	unique := make(map[uint16]uint16)
	lines := strings.Split(input, separator)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// remove inline comment
		if idx := strings.Index(line, "#"); idx != -1 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}

		var cvNum, cvVal string
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			cvNum = strings.TrimSpace(parts[0])
			cvVal = strings.TrimSpace(parts[1])
		} else {
			cvNum = strings.TrimSpace(line)
			cvVal = "0" // default value when no value is provided
		}

		// Remove "CV" or "cv" prefix and parse number
		cvNum = strings.ToLower(cvNum)
		cvNum = strings.TrimPrefix(cvNum, "cv")
		lastNum := cvNum
		if first, last, isRange := strings.Cut(cvNum, "-"); isRange {
			cvNum = strings.TrimSpace(first)
			lastNum = strings.TrimPrefix(strings.TrimSpace(last), "cv")
		}
		num, err := strconv.ParseUint(cvNum, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid CV number: %s", cvNum)
		}
		end, err := strconv.ParseUint(lastNum, 10, 16)
		if err != nil || end < num {
			return nil, fmt.Errorf("invalid CV number: %s", lastNum)
		}

		// Parse value
		val, err := strconv.ParseUint(cvVal, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid CV value: %s", cvVal)
		}

		for n := num; n <= end; n++ {
			unique[uint16(n)] = uint16(val)
		}
	}

	for k, v := range unique {
		result = append(result, CVEntry{Number: k, Value: v})
	}
	// Sort result by CVEntry.Number
	sort.Slice(result, func(i, j int) bool {
		return result[i].Number < result[j].Number
	})
	return result, nil
}

// ToLocoCVs converts parsed CV entries into the commandstation.LocoCV
// requests every Station.WriteCV/ReadCV call needs, for the given
// locomotive address.
func ToLocoCVs(entries []CVEntry, locoId commandstation.LocoAddr) []commandstation.LocoCV {
	out := make([]commandstation.LocoCV, 0, len(entries))
	for _, e := range entries {
		out = append(out, commandstation.LocoCV{
			LocoId: locoId,
			Cv: commandstation.CV{
				Num:   commandstation.CVNum(e.Number),
				Value: int(e.Value),
			},
		})
	}
	return out
}
