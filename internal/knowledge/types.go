package knowledge

// Article is a unit of knowledge base content, typically one section of a
// documentation page.
type Article struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// SearchResult pairs an article with its relevance to a query.
type SearchResult struct {
	Article   Article
	Relevance float32
}

// SampleArticles is a small built-in knowledge base used by seed and demo
// so the responder works before any real documentation is ingested.
var SampleArticles = []Article{
	{
		ID:    "kb-001",
		Title: "Resetting your password",
		Content: "To reset your password, open the login page and choose Forgot Password. " +
			"Enter the email address associated with your account and follow the link in the " +
			"reset email. Reset links expire after 24 hours. If you do not receive the email " +
			"within a few minutes, check your spam folder or contact the IT service desk.",
		Source: "kb/accounts.md",
	},
	{
		ID:    "kb-002",
		Title: "Mobile app offline mode",
		Content: "The mobile app supports offline mode for viewing previously synced data. " +
			"Enable it under Settings, Data and Sync, Offline Access. Changes made offline " +
			"are queued locally and synced automatically when a connection is restored. " +
			"Offline mode requires app version 3.2 or later.",
		Source: "kb/mobile.md",
	},
	{
		ID:    "kb-003",
		Title: "VPN connection troubleshooting",
		Content: "If the VPN fails to connect, first confirm you are on a network with " +
			"internet access, then restart the VPN client. Error 809 usually means a " +
			"firewall is blocking UDP port 500. If problems persist, re-import your VPN " +
			"profile from the self-service portal or open a ticket with the Infrastructure team.",
		Source: "kb/network.md",
	},
	{
		ID:    "kb-004",
		Title: "Requesting software licenses",
		Content: "Software license requests are submitted through the self-service portal " +
			"under Requests, New Software. Standard licenses are approved automatically and " +
			"provisioned within one business day. Non-standard software requires manager " +
			"approval and a security review, which typically takes three to five business days.",
		Source: "kb/procurement.md",
	},
	{
		ID:    "kb-005",
		Title: "Dashboard performance tips",
		Content: "Dashboards with many widgets or long date ranges can load slowly. Reduce " +
			"the default date range, limit each dashboard to ten widgets, and prefer " +
			"pre-aggregated data sources. The reporting team can enable cached rendering " +
			"for dashboards that are shared with large audiences.",
		Source: "kb/reporting.md",
	},
}
