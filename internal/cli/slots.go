package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/efredriksson/provvakt/internal/domain/model"
)

// SlotsCmd returns the slots command: read-only queries against the stored
// snapshot.
func SlotsCmd() *cobra.Command {
	var (
		examTypeName string
		from, to     string
		location     string
		next         bool
	)

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Show slots from the local snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			examType, err := parseExamType(examTypeName)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeQuietly(db)

			ctx := cmd.Context()

			if next {
				slot, err := store.NextAvailable(ctx, examType, time.Now().Format("2006-01-02"))
				if err != nil {
					return err
				}
				if slot == nil {
					fmt.Println("No upcoming slots.")
					return nil
				}
				printSlot(*slot)
				return nil
			}

			var slots []model.Slot
			switch {
			case from != "" && to != "":
				slots, err = store.SlotsInRange(ctx, examType, from, to)
			case location != "":
				slots, err = store.SlotsAtLocation(ctx, examType, location)
			default:
				slots, err = store.AllSlots(ctx, examType)
			}
			if err != nil {
				return err
			}

			if len(slots) == 0 {
				fmt.Printf("No slots stored for %s.\n", examType)
				return nil
			}

			fmt.Printf("%d slots for %s:\n", len(slots), color.CyanString(string(examType)))
			for _, s := range slots {
				printSlot(s)
			}
			return nil
		},
	}

	examTypeFlag(cmd, &examTypeName)
	cmd.Flags().StringVar(&from, "from", "", "range start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "range end date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&location, "location", "l", "", "filter by location name")
	cmd.Flags().BoolVarP(&next, "next", "n", false, "show only the next upcoming slot")

	return cmd
}

func printSlot(s model.Slot) {
	fmt.Printf("  %s, %s %s in %s for %s\n",
		s.Name, color.GreenString(s.Date), s.Time, s.Location, s.Cost)
}
