package views

import "github.com/pterm/pterm"

type SystemInfoItem struct {
	ConfigPath      string
	DBDriver        string
	DBPath          string
	DBExists        bool // true = Found, false = Not Found
	DefaultCurrency string
	ReferencePrefix string
	EventSink       string
	LogLevel        string
	MetricsFile     string
	AppDataDir      string
}

func RenderSystemInfo(data SystemInfoItem) error {
	dbStatus := pterm.Green("Found")
	if !data.DBExists {
		dbStatus = pterm.Red("Not Found (Will be created)")
	}

	tableData := pterm.TableData{
		{"Configuration File", data.ConfigPath},
		{"Database Driver", data.DBDriver},
		{"Database", data.DBPath},
	}
	if data.DBDriver == "sqlite" {
		tableData = append(tableData, []string{"Database Status", dbStatus})
	}
	tableData = append(tableData,
		[]string{"Default Currency", data.DefaultCurrency},
		[]string{"Reference Prefix", data.ReferencePrefix},
		[]string{"Event Sink", data.EventSink},
		[]string{"Log Level", data.LogLevel},
		[]string{"Metrics Textfile", data.MetricsFile},
		[]string{"AppData Directory", data.AppDataDir},
	)

	return pterm.DefaultTable.WithData(tableData).Render()
}
