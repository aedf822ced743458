// Package parser extracts outline nodes from marker-tagged model output.
//
// Grammar (not strictly validated):
//
//	<INTENT>optional interpretation of the request</INTENT>
//	<CHILDREN>
//	  <NODE>First child</NODE>
//	  <BULLET>Second child</BULLET>
//	</CHILDREN>
//
// Parse is called with the whole buffer received so far and only ever reports
// nodes whose opening and closing tags have both arrived.
package parser

import (
	"strconv"
	"strings"
)

// Marker tags of the generation grammar.
const (
	BeginChildren = "<CHILDREN>"
	EndChildren   = "</CHILDREN>"
	BeginNode     = "<NODE>"
	EndNode       = "</NODE>"
	BeginBullet   = "<BULLET>"
	EndBullet     = "</BULLET>"
	BeginIntent   = "<INTENT>"
	EndIntent     = "</INTENT>"
)

// Node is one fully closed entry of the children block.
type Node struct {
	Text       string `json:"text"`
	ParentPath string `json:"parent_path"`
	Path       string `json:"path"`
	Slot       int    `json:"slot"`
}

// Result is the outcome of parsing a buffer.
type Result struct {
	Nodes []Node
	// Intent is the trimmed <INTENT> annotation; empty unless HasIntent.
	Intent    string
	HasIntent bool
}

type tagPair struct {
	open, close string
}

var nodeTags = []tagPair{
	{BeginNode, EndNode},
	{BeginBullet, EndBullet},
}

// Parse extracts the closed nodes of buffer. Slots are numbered from startIndex in order of
// appearance and paths are parentPath + "." + slot. Parse never fails; malformed input yields
// fewer (possibly zero) nodes.
func Parse(buffer, parentPath string, startIndex int) Result {
	var res Result
	content := buffer

	if intent, rest, ok := extractIntent(content); ok {
		res.Intent = intent
		res.HasIntent = true
		content = rest
	}

	start := strings.Index(content, BeginChildren)
	if start < 0 {
		return res
	}
	body := content[start+len(BeginChildren):]
	if end := strings.LastIndex(body, EndChildren); end >= 0 {
		body = body[:end]
	}

	slot := startIndex
	pos := 0
	for pos < len(body) {
		openAt, pair := nextOpenTag(body, pos)
		if openAt < 0 {
			break
		}
		textStart := openAt + len(pair.open)
		closeAt := strings.Index(body[textStart:], pair.close)
		if closeAt < 0 {
			break
		}
		res.Nodes = append(res.Nodes, Node{
			Text:       strings.TrimSpace(body[textStart : textStart+closeAt]),
			ParentPath: parentPath,
			Path:       parentPath + "." + strconv.Itoa(slot),
			Slot:       slot,
		})
		slot++
		pos = textStart + closeAt + len(pair.close)
	}
	return res
}

// nextOpenTag finds the earliest node opening tag at or after pos.
func nextOpenTag(body string, pos int) (int, tagPair) {
	best := -1
	var found tagPair
	for _, pair := range nodeTags {
		i := strings.Index(body[pos:], pair.open)
		if i < 0 {
			continue
		}
		if best < 0 || pos+i < best {
			best = pos + i
			found = pair
		}
	}
	return best, found
}

// extractIntent removes a closed <INTENT> block from content.
func extractIntent(content string) (intent, rest string, ok bool) {
	open := strings.Index(content, BeginIntent)
	if open < 0 {
		return "", content, false
	}
	bodyStart := open + len(BeginIntent)
	closeAt := strings.Index(content[bodyStart:], EndIntent)
	if closeAt < 0 {
		return "", content, false
	}
	intent = strings.TrimSpace(content[bodyStart : bodyStart+closeAt])
	rest = content[:open] + content[bodyStart+closeAt+len(EndIntent):]
	return intent, rest, true
}
