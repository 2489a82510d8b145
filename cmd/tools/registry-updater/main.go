// cmd/tools/registry-updater/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"meetup-workers/internal/common/validation"
	"meetup-workers/pkg/registry"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var registryPath string

	cmd := &cobra.Command{
		Use:           "registry-updater",
		Short:         "Maintain the activity registry that describes every worker task type",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&registryPath, "path", "p", "configs/activity-registry.json", "Path to registry file")

	cmd.AddCommand(addCmd(&registryPath), updateCmd(&registryPath), validateCmd(&registryPath), listCmd(&registryPath))
	return cmd
}

func addCmd(path *string) *cobra.Command {
	var a registry.Activity

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new activity to the registry",
		Example: `  registry-updater add --id meetup.venue.search-venues --display-name "Search Venues" \
    --description "Searches venues around the fair point" --category meetup --task-type search-venues`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := addActivity(*path, a); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added activity: %s\n", a.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&a.ID, "id", "", "Activity ID (domain.subdomain.action)")
	f.StringVar(&a.DisplayName, "display-name", "", "Display name")
	f.StringVar(&a.Description, "description", "", "Description")
	f.StringVar(&a.Category, "category", "", "Category (e.g. meetup)")
	f.StringVar(&a.TaskType, "task-type", "", "Zeebe task type")
	f.StringVar(&a.Version, "version", "1.0.0", "Version")
	f.StringVar(&a.ImplementationStatus, "status", registry.StatusPlanned, "Implementation status (planned, in-progress, completed, verified)")
	f.StringVar(&a.Timeout, "timeout", "10s", "Job timeout")
	for _, name := range []string{"id", "display-name", "description", "category", "task-type"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func updateCmd(path *string) *cobra.Command {
	var id, field, value string

	cmd := &cobra.Command{
		Use:     "update",
		Short:   "Update a field of an existing activity",
		Example: "  registry-updater update --id meetup.venue.search-venues --field status --value completed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := updateActivity(*path, id, field, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated activity %s, field %s to %s\n", id, field, value)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Activity ID to update")
	cmd.Flags().StringVar(&field, "field", "", "Field to update (status, version, displayName, description, category, taskType, timeout, retries)")
	cmd.Flags().StringVar(&value, "value", "", "New value for the field")
	for _, name := range []string{"id", "field", "value"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func validateCmd(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check required fields, naming and input schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := validateRegistry(*path)
			if err != nil {
				return fmt.Errorf("registry validation failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d activities.\n", len(reg.Activities))
			return nil
		},
	}
}

func listCmd(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List activities by task type",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(*path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			printActivities(cmd.OutOrStdout(), reg)
			return nil
		},
	}
}

func addActivity(path string, activity registry.Activity) error {
	if err := validation.ValidateActivityNaming(activity.ID); err != nil {
		return err
	}
	if !registry.ValidStatus(activity.ImplementationStatus) {
		return fmt.Errorf("unknown status: %s", activity.ImplementationStatus)
	}
	if _, err := activity.JobTimeout(); err != nil {
		return err
	}

	reg, err := registry.LoadRegistry(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg = &registry.ActivityRegistry{Version: "1.0.0"}
	}

	for _, existing := range reg.Activities {
		if existing.ID == activity.ID {
			return fmt.Errorf("activity with ID %s already exists", activity.ID)
		}
	}
	if _, ok := reg.FindByTaskType(activity.TaskType); ok {
		return fmt.Errorf("task type %s is already registered", activity.TaskType)
	}

	if activity.InputSchema == nil {
		activity.InputSchema = registry.Schema{"type": "object"}
	}
	if activity.OutputSchema == nil {
		activity.OutputSchema = registry.Schema{"type": "object"}
	}
	reg.Activities = append(reg.Activities, activity)
	return save(reg, path)
}

func updateActivity(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	var a *registry.Activity
	for i := range reg.Activities {
		if reg.Activities[i].ID == id {
			a = &reg.Activities[i]
			break
		}
	}
	if a == nil {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	switch field {
	case "status":
		if !registry.ValidStatus(value) {
			return fmt.Errorf("unknown status: %s", value)
		}
		a.ImplementationStatus = value
	case "version":
		a.Version = value
	case "displayName":
		a.DisplayName = value
	case "description":
		a.Description = value
	case "category":
		a.Category = value
	case "taskType":
		a.TaskType = value
	case "timeout":
		a.Timeout = value
		if _, err := a.JobTimeout(); err != nil {
			return err
		}
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	return save(reg, path)
}

func validateRegistry(path string) (*registry.ActivityRegistry, error) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	if len(reg.Activities) == 0 {
		return nil, fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	taskTypes := make(map[string]bool)
	for _, a := range reg.Activities {
		switch {
		case a.ID == "":
			return nil, fmt.Errorf("activity missing required field: ID")
		case ids[a.ID]:
			return nil, fmt.Errorf("duplicate activity ID: %s", a.ID)
		case a.DisplayName == "":
			return nil, fmt.Errorf("activity %s missing required field: DisplayName", a.ID)
		case a.TaskType == "":
			return nil, fmt.Errorf("activity %s missing required field: TaskType", a.ID)
		case taskTypes[a.TaskType]:
			return nil, fmt.Errorf("duplicate task type: %s", a.TaskType)
		case a.Category == "":
			return nil, fmt.Errorf("activity %s missing required field: Category", a.ID)
		case !registry.ValidStatus(a.ImplementationStatus):
			return nil, fmt.Errorf("activity %s has unknown status %q", a.ID, a.ImplementationStatus)
		}
		if err := validation.ValidateActivityNaming(a.ID); err != nil {
			return nil, fmt.Errorf("activity %s: %w", a.ID, err)
		}
		if _, err := a.JobTimeout(); err != nil {
			return nil, err
		}
		ids[a.ID] = true
		taskTypes[a.TaskType] = true
	}

	if _, err := validation.NewValidator(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func printActivities(w io.Writer, reg *registry.ActivityRegistry) {
	activities := append([]registry.Activity(nil), reg.Activities...)
	sort.Slice(activities, func(i, j int) bool { return activities[i].TaskType < activities[j].TaskType })
	for _, a := range activities {
		fmt.Fprintf(w, "%-28s %-12s %-8s %s\n", a.TaskType, a.ImplementationStatus, a.Version, a.ID)
	}
}

func save(reg *registry.ActivityRegistry, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	if err := reg.Save(path); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}
