package mcp

import "github.com/mark3labs/mcp-go/mcp"

func extractThemeTool() mcp.Tool {
	return mcp.NewTool("extract_theme",
		mcp.WithDescription("Extract design tokens from a site (http(s) URL, local HTML/CSS file or directory), map them onto the token schema and compile widget CSS. Returns the mapped theme, confidence summary and compile diagnostics."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Page URL or local path to extract from")),
		mcp.WithNumber("max_pages", mcp.Description("Pages to visit on the same origin, including the first (default from config)")),
		mcp.WithString("scheme", mcp.Description("Preferred color scheme"), mcp.Enum("light", "dark")),
		mcp.WithBoolean("include_css", mcp.Description("Include the compiled CSS in the response (default false)")),
		mcp.WithBoolean("include_report", mcp.Description("Include the per-token mapping report (default false)")),
	)
}

func mapFindingsTool() mcp.Tool {
	return mcp.NewTool("map_findings",
		mcp.WithDescription("Map raw findings (the raw-findings.json of a previous run) onto the token schema without fetching anything."),
		mcp.WithString("findings", mcp.Required(), mcp.Description("JSON array of raw findings")),
	)
}

func compileThemeTool() mcp.Tool {
	return mcp.NewTool("compile_theme",
		mcp.WithDescription("Validate a theme JSON document (bare theme or {theme, report}) and compile it to widget CSS. Validation failures are returned with ok=false, the errors and the normalized theme."),
		mcp.WithString("theme", mcp.Required(), mcp.Description("Theme JSON")),
		mcp.WithBoolean("include_legacy_layer", mcp.Description("Append the legacy compatibility overlay")),
	)
}

func schemaStatusTool() mcp.Tool {
	return mcp.NewTool("schema_status",
		mcp.WithDescription("Report the active token schema: source root, token counts per category and cache statistics. Builds the schema if it is not cached."),
	)
}
