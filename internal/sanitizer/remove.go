package sanitizer

import (
	"strings"

	"golang.org/x/net/html"
)

var alwaysRemoved = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"iframe": true, "object": true, "embed": true, "link": true,
	"meta": true, "button": true, "input": true, "select": true,
	"nav": true, "footer": true,
}

var chromeElements = map[string]bool{
	"header": true, "aside": true,
}

// removeNonContent drops comments and non-content subtrees.
func removeNonContent(node *html.Node, stripChrome bool) {
	var children []*html.Node
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		children = append(children, child)
	}

	for _, child := range children {
		switch {
		case child.Type == html.CommentNode:
			node.RemoveChild(child)
		case child.Type == html.ElementNode && alwaysRemoved[child.Data]:
			node.RemoveChild(child)
		case child.Type == html.ElementNode && stripChrome && chromeElements[child.Data]:
			node.RemoveChild(child)
		default:
			removeNonContent(child, stripChrome)
		}
	}
}

// removeEmptyNodesBottomUp performs a post-order traversal to remove empty nodes.
// This ensures nested empty containers are fully cleaned (innermost first).
func removeEmptyNodesBottomUp(node *html.Node) {
	if node == nil {
		return
	}

	var children []*html.Node
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		children = append(children, child)
	}
	for _, child := range children {
		removeEmptyNodesBottomUp(child)
	}

	if node.Type == html.ElementNode && isEmptyNode(node) && shouldRemoveEmptyElement(node.Data) {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}

// shouldRemoveEmptyElement returns true if an empty element of this type should be removed.
// Void elements and table cells are valid even when empty.
func shouldRemoveEmptyElement(tag string) bool {
	switch tag {
	case "area", "br", "col", "hr", "img", "source", "track", "wbr":
		return false
	// an empty cell still holds a column position
	case "td", "th":
		return false
	case "html", "head", "body", "main":
		return false
	}
	return true
}

func isEmptyNode(node *html.Node) bool {
	if node == nil || node.Type != html.ElementNode {
		return false
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.ElementNode:
			return false
		case html.TextNode:
			if strings.TrimSpace(child.Data) != "" {
				return false
			}
		}
	}
	return true
}
