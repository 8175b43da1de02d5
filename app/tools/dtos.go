package tools

type FileAction struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type CopyAction struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

type SearchAction struct {
	Path      string `json:"path"`
	Pattern   string `json:"pattern"`
	Recursive bool   `json:"recursive"`
}

type DirectoryAction struct {
	Directory string `json:"directory"`
}

type CommandAction struct {
	Command string `json:"command"`
}

type FetchAction struct {
	URL string `json:"url"`
}

type ExtractAction struct {
	HTML string `json:"html"`
}
