package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
)

// unlockActiveKey makes sure the active master key, if any, is usable. The
// password is asked for only when the key is not unlocked yet.
func (a *App) unlockActiveKey(ctx context.Context, cmd *cobra.Command) error {
	id, err := a.engine.Keys.ActiveID(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return nil
	}
	if _, err := a.engine.Keys.Key(id); err == nil {
		return nil
	}
	return a.loadKey(ctx, cmd, id)
}

func (a *App) loadKey(ctx context.Context, cmd *cobra.Command, id string) error {
	pw, err := GetPassword(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	if err := a.engine.Keys.Load(ctx, id, pw); err != nil {
		if errors.Is(err, common.ErrInvalidPassword) {
			return fmt.Errorf("master key %s: wrong password", id)
		}
		return err
	}
	return nil
}

// itemID accepts either a bare id or a ":/<id>" link copied from a body.
func itemID(arg string) string {
	if models.IsItemURL(arg) {
		return models.URLToID(arg)
	}
	return arg
}

var typeNames = map[string]models.ItemType{
	"note":       models.TypeNote,
	"notes":      models.TypeNote,
	"folder":     models.TypeFolder,
	"folders":    models.TypeFolder,
	"resource":   models.TypeResource,
	"resources":  models.TypeResource,
	"masterkey":  models.TypeMasterKey,
	"masterkeys": models.TypeMasterKey,
}

func parseItemType(s string) (models.ItemType, error) {
	t, ok := typeNames[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", common.ErrUnknownType, s)
	}
	return t, nil
}

func printCounts(cmd *cobra.Command, counts map[models.ItemType]int) {
	for _, t := range []models.ItemType{models.TypeFolder, models.TypeNote, models.TypeResource, models.TypeMasterKey} {
		if n := counts[t]; n > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", t, n)
		}
	}
}

func printWarnings(cmd *cobra.Command, warnings []string) {
	for _, w := range warnings {
		cmd.PrintErrln("warning:", w)
	}
}
