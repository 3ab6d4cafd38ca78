package providers

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
)

// finalResponse scans a responses-API event stream for the terminal
// event and returns its "response" object.
func finalResponse(stream []byte) ([]byte, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(stream))
	scanner.Buffer(make([]byte, 0, 64*1024), len(stream)+1)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if !gjson.Valid(data) {
			continue
		}

		event := gjson.Parse(data)
		switch event.Get("type").String() {
		case "response.done", "response.completed":
			response := event.Get("response")
			if response.Exists() {
				return []byte(response.Raw), true
			}
		}
	}
	return nil, false
}
