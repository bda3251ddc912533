package mcp

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jcdickinson/xmldocmd/internal/docs"
	"github.com/jcdickinson/xmldocmd/internal/library"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

//go:embed instructions.md
var instructions string

type Server struct {
	mcpServer *server.MCPServer
	lib       *library.Library
}

func NewServer(lib *library.Library, version string) *Server {
	s := &Server{lib: lib}

	mcpServer := server.NewMCPServer(
		"xmldocmd",
		version,
		server.WithInstructions(instructions),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("get_doc",
			mcp.WithDescription("Read the Markdown page of a type or member by documentation id (e.g. \"T:System.String\"). Type pages list their sections as fragment URIs in front matter; pass `fragment` to read one section."),
			mcp.WithString("uid",
				mcp.Description("Documentation id, with or without the xmldoc:// prefix"),
				mcp.Required(),
			),
			mcp.WithString("fragment",
				mcp.Description("Optional section name, e.g. \"methods\" or \"extension-methods\""),
			),
		),
		s.handleGetDoc,
	)

	mcpServer.AddTool(
		mcp.NewTool("search_docs",
			mcp.WithDescription("Find transformed types and members by name or documentation id. Returns URIs that can be read as resources."),
			mcp.WithString("query",
				mcp.Description("Name or id fragment, matched case-insensitively"),
				mcp.Required(),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of results (default 20)"),
			),
		),
		s.handleSearchDocs,
	)

	mcpServer.AddTool(
		mcp.NewTool("unresolved_refs",
			mcp.WithDescription("List cross-references that could not be resolved during the last transform, to find broken or missing documentation links."),
			mcp.WithString("source",
				mcp.Description("Optional source name to restrict the listing to"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of results (default 100)"),
			),
		),
		s.handleUnresolvedRefs,
	)
}

func (s *Server) registerResources(mcpServer *server.MCPServer) {
	mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			docs.URIScheme+"{+uid}",
			".NET documentation page",
			mcp.WithTemplateDescription("Read a transformed documentation page. Search results and page links use these URIs."),
			mcp.WithTemplateMIMEType("text/markdown"),
		),
		s.handleReadResource,
	)
}

func (s *Server) handleGetDoc(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	uid, _ := args["uid"].(string)
	if uid == "" {
		return mcp.NewToolResultError("missing required parameter: uid"), nil
	}
	fragment, _ := args["fragment"].(string)

	uid, uriFragment := parseURI(uid)
	if fragment == "" {
		fragment = uriFragment
	}

	text, err := s.lib.GetDoc(uid, fragment)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get doc failed: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleSearchDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	query, _ := args["query"].(string)
	if query == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	var limit int
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
	}

	results, err := s.lib.Search(query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	resultJSON, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func (s *Server) handleUnresolvedRefs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	source, _ := args["source"].(string)
	var limit int
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
	}

	refs, err := s.lib.Unresolved(source, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing unresolved references failed: %v", err)), nil
	}

	resultJSON, _ := json.MarshalIndent(refs, "", "  ")
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func (s *Server) handleReadResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	if !strings.HasPrefix(uri, docs.URIScheme) {
		return nil, fmt.Errorf("invalid resource URI: %s", uri)
	}
	uid, fragment := parseURI(uri)

	text, err := s.lib.GetDoc(uid, fragment)
	if err != nil {
		return nil, fmt.Errorf("getting doc: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     text,
		},
	}, nil
}

var fragmentNames = map[string]bool{
	docs.FragConstructors: true,
	docs.FragProperties:   true,
	docs.FragMethods:      true,
	docs.FragFields:       true,
	docs.FragEvents:       true,
	docs.FragExtensions:   true,
}

// parseURI splits "xmldoc://UID#fragment" into its parts. A bare uid is
// accepted as well. Constructor ids contain '#', so only known fragment
// names are split off.
func parseURI(s string) (uid, fragment string) {
	s = strings.TrimPrefix(strings.TrimSpace(s), docs.URIScheme)
	if idx := strings.LastIndex(s, "#"); idx >= 0 && fragmentNames[s[idx+1:]] {
		return s[:idx], s[idx+1:]
	}
	return s, ""
}

func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}
