package tree

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"unicode"
	"unicode/utf8"
)

type parseMode int

const (
	modeName parseMode = iota
	modeLength
)

// isSpecial reports newick structural characters.
func isSpecial(c rune) bool {
	switch c {
	case '(', ')', ':', ';', ',':
		return true
	}
	return false
}

// newickSplit is a bufio.SplitFunc returning structural characters as
// single-rune tokens and everything between them as words.
func newickSplit(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for width := 0; start < len(data); start += width {
		var r rune
		r, width = utf8.DecodeRune(data[start:])
		if isSpecial(r) {
			return start + width, data[start : start+width], nil
		}
		if !unicode.IsSpace(r) {
			break
		}
	}
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	for width, i := 0, start; i < len(data); i += width {
		var r rune
		r, width = utf8.DecodeRune(data[i:])
		if unicode.IsSpace(r) || isSpecial(r) {
			return i, data[start:i], nil
		}
	}
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return 0, nil, nil
}

// ParseNewick reads a rooted newick tree with optional branch lengths
// and node labels, e.g. "((a:0.1,b:0.2):0.05,c:0.3);".
func ParseNewick(rd io.Reader) (*Tree, error) {
	scanner := bufio.NewScanner(rd)
	scanner.Split(newickSplit)

	root := NewNode(nil)
	tree := &Tree{Node: root}
	node := root

	mode := modeName
	sawToken := false
	for scanner.Scan() {
		text := scanner.Text()
		sawToken = true
		switch text {
		case "(":
			node = NewNode(node)
		case ",":
			if node.Parent == nil {
				return nil, errors.New("top level comma mismatch")
			}
			node = NewNode(node.Parent)
		case ")":
			if node.Parent == nil {
				return nil, errors.New("brackets mismatch")
			}
			node = node.Parent
		case ":":
			mode = modeLength
		case ";":
			if node != root {
				return nil, errors.New("unbalanced tree")
			}
			return tree, nil
		default:
			if mode == modeLength {
				l, err := strconv.ParseFloat(text, 64)
				if err != nil {
					return nil, err
				}
				node.BranchLength = l
				mode = modeName
			} else {
				node.Name = text
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawToken {
		return nil, ErrNoTree
	}
	if node != root {
		return nil, errors.New("unbalanced tree")
	}
	return tree, nil
}
