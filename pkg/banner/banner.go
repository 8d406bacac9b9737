package banner

import "fmt"

const banner = `
 ██████╗ ██████╗  █████╗  ██████╗██╗  ██╗ ██████╗██╗  ██╗ █████╗ ████████╗
██╔════╝██╔═══██╗██╔══██╗██╔════╝██║  ██║██╔════╝██║  ██║██╔══██╗╚══██╔══╝
██║     ██║   ██║███████║██║     ███████║██║     ███████║███████║   ██║
██║     ██║   ██║██╔══██║██║     ██╔══██║██║     ██╔══██║██╔══██║   ██║
╚██████╗╚██████╔╝██║  ██║╚██████╗██║  ██║╚██████╗██║  ██║██║  ██║   ██║
 ╚═════╝ ╚═════╝ ╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝
`

// Print writes the startup banner with the effective runtime settings.
func Print(addr, dbPath, sources, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	if sources != "" {
		fmt.Printf("Config sources: %s\n", sources)
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/threads - Create a thread (JSON: title, type, participants, created_by)")
	fmt.Println("GET  /v1/threads?user=<id>&cursor=<c>&limit=<n> - List a user's threads")
	fmt.Println("POST /v1/threads/{id}/archive - Archive a thread")
	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost%s/v1/threads' -d '{\"type\":\"direct\",...}'\n", addr)
	fmt.Printf("curl 'http://localhost%s/v1/threads?user=u1&limit=20'\n", addr)
}
