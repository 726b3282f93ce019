package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/iota-identity/modules/department/domain/aggregates/department"
)

type seedFile struct {
	Departments []seedNode `yaml:"departments"`
}

type seedNode struct {
	Code         string     `yaml:"code"`
	Name         string     `yaml:"name"`
	Description  string     `yaml:"description"`
	DisplayOrder int        `yaml:"display_order"`
	ParentID     int64      `yaml:"parent_id"`
	Children     []seedNode `yaml:"children"`
}

// seedItem is one department of a seed plan. Top-level items attach to
// ParentID; nested ones to the department created for ParentCode.
type seedItem struct {
	ParentCode string
	ParentID   int64
	Draft      department.CreateDTO
}

func parseSeed(r io.Reader) (*seedFile, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

// planSeed groups the seed tree by depth so that every parent is created in
// an earlier batch than its children.
func planSeed(f *seedFile) ([][]seedItem, error) {
	if f == nil || len(f.Departments) == 0 {
		return nil, fmt.Errorf("seed file has no departments")
	}
	seen := make(map[string]struct{})
	var levels [][]seedItem

	var walk func(nodes []seedNode, depth int, parentCode string) error
	walk = func(nodes []seedNode, depth int, parentCode string) error {
		for _, n := range nodes {
			code := strings.TrimSpace(n.Code)
			if code == "" {
				return fmt.Errorf("department %q: code is required", n.Name)
			}
			if strings.TrimSpace(n.Name) == "" {
				return fmt.Errorf("department %q: name is required", code)
			}
			if _, dup := seen[code]; dup {
				return fmt.Errorf("department code %q appears more than once", code)
			}
			if depth > 0 && n.ParentID != 0 {
				return fmt.Errorf("department %q: parent_id is only allowed on top-level entries", code)
			}
			seen[code] = struct{}{}

			if len(levels) <= depth {
				levels = append(levels, nil)
			}
			levels[depth] = append(levels[depth], seedItem{
				ParentCode: parentCode,
				ParentID:   n.ParentID,
				Draft: department.CreateDTO{
					Code:         code,
					Name:         n.Name,
					Description:  n.Description,
					DisplayOrder: n.DisplayOrder,
				},
			})
			if err := walk(n.Children, depth+1, code); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(f.Departments, 0, ""); err != nil {
		return nil, err
	}
	return levels, nil
}

// resolveSeedLevel turns one plan level into drafts using the ids created so far.
func resolveSeedLevel(level []seedItem, created map[string]int64) ([]*department.CreateDTO, error) {
	drafts := make([]*department.CreateDTO, 0, len(level))
	for _, item := range level {
		draft := item.Draft
		draft.PID = item.ParentID
		if item.ParentCode != "" {
			pid, ok := created[item.ParentCode]
			if !ok {
				return nil, fmt.Errorf("department %q: parent %q was not created", draft.Code, item.ParentCode)
			}
			draft.PID = pid
		}
		drafts = append(drafts, &draft)
	}
	return drafts, nil
}

func newSeedCmd() *cobra.Command {
	var (
		tenant string
		file   string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a department tree from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := parseTenant(tenant)
			if err != nil {
				return err
			}
			fh, err := os.Open(file)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("open seed file: %w", err))
			}
			defer fh.Close()
			parsed, err := parseSeed(fh)
			if err != nil {
				return withCode(exitUsage, err)
			}
			plan, err := planSeed(parsed)
			if err != nil {
				return withCode(exitValidation, err)
			}

			env, err := openEnv(cmd, false)
			if err != nil {
				return err
			}
			defer env.Close()

			created := make(map[string]int64)
			for depth, level := range plan {
				drafts, err := resolveSeedLevel(level, created)
				if err != nil {
					return withCode(exitValidation, err)
				}
				ids, err := env.service.Add(env.ctx, tenantID, drafts)
				if err != nil {
					return serviceCode(fmt.Errorf("seed depth %d: %w", depth+1, err))
				}
				for i, id := range ids {
					created[drafts[i].Code] = id
					if err := writeJSONLine(cmd.OutOrStdout(), map[string]any{"code": drafts[i].Code, "id": id, "pid": drafts[i].PID}); err != nil {
						return err
					}
				}
			}
			return writeJSONLine(cmd.OutOrStdout(), map[string]any{"status": "seeded", "tenant_id": tenantID.String(), "created": len(created)})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant UUID (required)")
	cmd.Flags().StringVar(&file, "file", "", "Seed YAML file (required)")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
