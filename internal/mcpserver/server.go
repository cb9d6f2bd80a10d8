// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the open document and the saved packages to LLM hosts via stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/dysedit/internal/bridge"
	"github.com/starford/dysedit/internal/docservice"
	"github.com/starford/dysedit/internal/session"
)

// dialectURI is the resource carrying the markdown dialect description.
const dialectURI = "dysedit://markdown-dialect"

// Server wraps the MCP server with the document tools.
type Server struct {
	mcp    *server.MCPServer
	sess   *session.Session
	bridge *bridge.Bridge
	docs   *docservice.Service
}

// New creates a new MCP server with all tools registered.
func New(sess *session.Session, docs *docservice.Service) *Server {
	s := &Server{sess: sess, bridge: bridge.New(sess, nil), docs: docs}

	s.mcp = server.NewMCPServer(
		"dysedit",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("read_markdown",
		mcp.WithDescription("Read the open document as Markdown."),
	), s.readMarkdown)

	s.mcp.AddTool(mcp.NewTool("write_markdown",
		mcp.WithDescription("Replace the open document with Markdown. "+
			"Content MUST follow the editor dialect; read it first via the "+
			"get_markdown_dialect tool or the "+dialectURI+" resource. "+
			"Stray single asterisks are removed before the content is applied."),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Markdown in the editor dialect")),
	), s.writeMarkdown)

	s.mcp.AddTool(mcp.NewTool("read_document_data",
		mcp.WithDescription("Read the open document as Markdown plus its images. "+
			"Images are referenced as ./images/<filename> and returned as base64."),
	), s.readDocumentData)

	s.mcp.AddTool(mcp.NewTool("write_document_data",
		mcp.WithDescription("Replace the open document with Markdown and images. "+
			"Pass a JSON object {markdown, images: [{filename, mime, data}]} with base64 data; "+
			"reference each image in the Markdown as ./images/<filename>."),
		mcp.WithString("document", mcp.Required(), mcp.Description("JSON document data")),
	), s.writeDocumentData)

	s.mcp.AddTool(mcp.NewTool("get_markdown_dialect",
		mcp.WithDescription("Returns the Markdown dialect accepted by the editor. "+
			"Call this before writing content to ensure correct structure."),
	), s.getMarkdownDialect)

	s.mcp.AddTool(mcp.NewTool("insert_image",
		mcp.WithDescription("Insert an image at the end of the open document. "+
			"Accepts a base64 data URI or an http(s) URL."),
		mcp.WithString("url", mcp.Required(), mcp.Description("data: URI or http(s) URL of the image")),
		mcp.WithString("filename", mcp.Description("Optional file name used as the image alt text")),
	), s.insertImage)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through saved documents."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List saved documents, most recently updated first."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("open_document",
		mcp.WithDescription("Open a saved document for editing, replacing the open one."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Package name as returned by list_documents")),
	), s.openDocument)

	s.mcp.AddTool(mcp.NewTool("save_document",
		mcp.WithDescription("Save the open document as a package. "+
			"An existing package with another name is never overwritten; the name gets a numeric suffix instead."),
		mcp.WithString("name", mcp.Description("Package name; empty saves the open package")),
	), s.saveDocument)

	// Resource: markdown dialect.
	s.mcp.AddResource(
		mcp.NewResource(dialectURI, "Markdown Dialect",
			mcp.WithResourceDescription("Markdown dialect understood by the editor."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDialectResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) readMarkdown(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.bridge.ReadMarkdown()), nil
}

func (s *Server) writeMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	md, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.bridge.WriteMarkdown(ctx, md) {
		return mcp.NewToolResultError("document updated but some images could not be stored"), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *Server) readDocumentData(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := s.bridge.ReadDocumentData(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.Marshal(data)
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) writeDocumentData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var data bridge.DocumentData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid document JSON: %v", err)), nil
	}
	if !s.bridge.WriteDocumentData(ctx, data) {
		return mcp.NewToolResultError("document data rejected: check the image payloads"), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *Server) getMarkdownDialect(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(bridge.Dialect), nil
}

func (s *Server) readDialectResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      dialectURI,
			MIMEType: "text/markdown",
			Text:     bridge.Dialect,
		},
	}, nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.docs.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDocuments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.docs.ListDocuments(ctx, 200, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) openDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.sess.Open(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open %s: %v", name, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("opened: %s (%d images)", res.Name, res.Images)), nil
}

func (s *Server) saveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := ""
	if v, err := req.RequireString("name"); err == nil {
		name = v
	}
	res, err := s.sess.Save(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.docs.IndexPackage(res.Name); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("saved %s but indexing failed: %v", res.Name, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", res.Path)), nil
}
