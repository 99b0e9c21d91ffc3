package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	sandlib "github.com/AnishMulay/sandfile/clients/library"
	"github.com/AnishMulay/sandfile/internal/config"
	fs "github.com/AnishMulay/sandfile/internal/file_service"
	"github.com/AnishMulay/sandfile/internal/log_service"
	"github.com/AnishMulay/sandfile/internal/log_service/localdisc"
	"github.com/AnishMulay/sandfile/servers/simple"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	configPath := flag.String("config", "./sandfile.yaml", "Config file (written with defaults if missing)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol, so logs always go to disk.
	var ls log_service.LogService = log_service.NewNopLogService()
	if fileLog, err := localdisc.NewLocalDiscLogService(cfg.Log.Dir, "mcp", cfg.Log.Level); err == nil {
		defer fileLog.Close()
		ls = fileLog
	}

	comm := simple.NewCommunicator(cfg.Client.Transport, "", ls)
	defer comm.Stop()
	client := sandlib.NewSandfileClient(cfg.Client.Server, comm, ls)

	s := server.NewMCPServer(
		"sandfile",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	addTools(s, client)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
	}
}

func handleArg(request mcp.CallToolRequest) (fs.Handle, error) {
	index, err := request.RequireInt("index")
	if err != nil {
		return fs.NoHandle, err
	}
	epoch, err := request.RequireInt("epoch")
	if err != nil {
		return fs.NoHandle, err
	}
	return fs.Handle{Index: index, Epoch: uint64(epoch)}, nil
}

func withHandle(opts ...mcp.ToolOption) []mcp.ToolOption {
	return append(opts,
		mcp.WithNumber("index",
			mcp.Required(),
			mcp.Description("Handle index returned by open_file"),
		),
		mcp.WithNumber("epoch",
			mcp.Required(),
			mcp.Description("Handle epoch returned by open_file"),
		),
	)
}

func nameArg() mcp.ToolOption {
	return mcp.WithString("name",
		mcp.Required(),
		mcp.Description("File name (no path separators)"),
	)
}

func addTools(s *server.MCPServer, client *sandlib.SandfileClient) {
	s.AddTool(mcp.NewTool("create_file",
		mcp.WithDescription("Create an empty file and start tracking it"),
		nameArg(),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := client.Create(ctx, name); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create %s: %v", name, err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Created %s", name)), nil
	})

	s.AddTool(mcp.NewTool("open_file",
		mcp.WithDescription("Open a file. Only one file can be open at a time"),
		nameArg(),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		h, err := client.Open(ctx, name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to open %s: %v", name, err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Opened %s: index=%d epoch=%d", name, h.Index, h.Epoch)), nil
	})

	s.AddTool(mcp.NewTool("write_file",
		withHandle(
			mcp.WithDescription("Replace the contents of the open file"),
			mcp.WithString("content",
				mcp.Required(),
				mcp.Description("New file contents"),
			),
		)...,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		h, err := handleArg(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		content, err := request.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := client.Write(ctx, h, []byte(content)); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to write: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Wrote %d bytes", len(content))), nil
	})

	s.AddTool(mcp.NewTool("read_file",
		withHandle(
			mcp.WithDescription("Read the open file"),
			mcp.WithNumber("capacity",
				mcp.Description("Buffer capacity; at most capacity-1 bytes are returned"),
			),
		)...,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		h, err := handleArg(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		capacity := request.GetInt("capacity", sandlib.DefaultReadCapacity)
		data, n, err := client.Read(ctx, h, capacity)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Read %d bytes:\n%s", n, string(data))), nil
	})

	s.AddTool(mcp.NewTool("close_file",
		withHandle(mcp.WithDescription("Close the open file"))...,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		h, err := handleArg(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := client.Close(ctx, h); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to close: %v", err)), nil
		}
		return mcp.NewToolResultText("Closed"), nil
	})

	s.AddTool(mcp.NewTool("delete_file",
		mcp.WithDescription("Delete a closed file from storage and stop tracking it"),
		nameArg(),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := client.Delete(ctx, name); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to delete %s: %v", name, err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted %s", name)), nil
	})

	s.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List tracked files in table order"),
		mcp.WithString("pattern",
			mcp.Description("Optional glob, e.g. *.txt"),
		),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pattern := request.GetString("pattern", "")
		entries, err := client.List(ctx, pattern)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list: %v", err)), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%d tracked files:\n", len(entries))
		for i, e := range entries {
			state := "closed"
			if e.IsOpen {
				state = "open"
			}
			fmt.Fprintf(&b, "%d. %s (%d bytes, %s)\n", i, e.Name, e.Size, state)
		}
		return mcp.NewToolResultText(b.String()), nil
	})
}
