package main

import (
	"fmt"
	"strings"

	"lecturehall/internal/domain/entity"
	"lecturehall/internal/domain/repository"
	"lecturehall/internal/infra/persistence/gormrepo"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/spf13/cobra"
)

func newTreeCommand(ctx *commandContext) *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the folder tree with asset counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(cmd, func(env *environment) error {
				folders, err := gormrepo.NewFolderRepository(env.db).List(cmd.Context(), repository.FolderFilter{
					Namespace: entity.NormalizeNamespace(namespace),
				})
				if err != nil {
					return err
				}

				assets, err := gormrepo.NewAssetRepository(env.db).List(cmd.Context(), repository.AssetFilter{
					Namespace: entity.NormalizeNamespace(namespace),
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(folders) == 0 {
					fmt.Fprintln(out, "No folders")

					return nil
				}

				fmt.Fprintln(out, renderTree(folders, assets))

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Only show one namespace, e.g. SAT")

	return cmd
}

type folderUsage struct {
	count int
	bytes int64
}

// renderTree draws every namespace as a tree. Folders whose parent is missing are shown
// at the top level and marked, folders caught in a cycle are listed last, and a folder is never drawn twice.
func renderTree(folders []*entity.Folder, assets []*entity.Asset) string {
	byID := make(map[uuid.UUID]*entity.Folder, len(folders))
	for _, folder := range folders {
		byID[folder.ID] = folder
	}

	children := make(map[uuid.UUID][]*entity.Folder)
	tops := make(map[string][]*entity.Folder)
	var namespaces []string
	for _, folder := range folders {
		if folder.ParentID != nil {
			if _, ok := byID[*folder.ParentID]; ok {
				children[*folder.ParentID] = append(children[*folder.ParentID], folder)

				continue
			}
		}
		if _, seen := tops[folder.Namespace]; !seen {
			namespaces = append(namespaces, folder.Namespace)
		}
		tops[folder.Namespace] = append(tops[folder.Namespace], folder)
	}

	usage := make(map[uuid.UUID]folderUsage)
	for _, asset := range assets {
		u := usage[asset.FolderID]
		u.count++
		u.bytes += asset.SizeBytes
		usage[asset.FolderID] = u
	}

	lw := list.NewWriter()
	lw.SetStyle(list.StyleConnectedRounded)

	visited := make(map[uuid.UUID]bool, len(folders))
	var walk func(folder *entity.Folder)
	walk = func(folder *entity.Folder) {
		if visited[folder.ID] {
			return
		}
		visited[folder.ID] = true

		orphan := folder.ParentID != nil && byID[*folder.ParentID] == nil
		lw.AppendItem(folderLabel(folder, usage[folder.ID], orphan))

		if kids := children[folder.ID]; len(kids) > 0 {
			lw.Indent()
			for _, child := range kids {
				walk(child)
			}
			lw.UnIndent()
		}
	}

	for _, ns := range namespaces {
		lw.AppendItem(ns)
		lw.Indent()
		for _, folder := range tops[ns] {
			walk(folder)
		}
		lw.UnIndent()
	}

	// Folders only reachable through a parent cycle.
	var unreachable []*entity.Folder
	for _, folder := range folders {
		if !visited[folder.ID] {
			unreachable = append(unreachable, folder)
		}
	}
	if len(unreachable) > 0 {
		lw.AppendItem("unreachable (parent cycle)")
		lw.Indent()
		for _, folder := range unreachable {
			walk(folder)
		}
		lw.UnIndent()
	}

	return lw.Render()
}

func folderLabel(folder *entity.Folder, u folderUsage, orphan bool) string {
	var b strings.Builder
	b.WriteString(folder.Name)
	if folder.Badge != "" {
		fmt.Fprintf(&b, " [%s]", folder.Badge)
	}
	if u.count > 0 {
		fmt.Fprintf(&b, " (%d %s, %s)", u.count, plural(u.count, "asset", "assets"), humanize.Bytes(uint64(u.bytes)))
	}
	if orphan {
		b.WriteString(" !missing parent")
	}

	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}

	return many
}
