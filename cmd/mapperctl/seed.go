package main

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/communitymapper/community-mapper/internal/service"
)

type seedPerson struct {
	input service.PersonInput
	tags  []string
}

func intp(v int) *int { return &v }

// seedPeople is a small neighborhood for demos and manual testing.
var seedPeople = []seedPerson{
	{service.PersonInput{Name: "Maria Aparecida", Context: "comunidade", Proximity: "primeiro", Importance: intp(5), City: "Recife"}, []string{"liderança", "associação de moradores"}},
	{service.PersonInput{Name: "João Batista", Context: "igreja", Proximity: "segundo", Importance: intp(3), City: "Recife"}, []string{"voluntário"}},
	{service.PersonInput{Name: "Ana Lúcia", Context: "trabalho", Proximity: "primeiro", TrustLevel: intp(4), City: "Olinda"}, []string{"liderança"}},
	{service.PersonInput{Name: "Carlos Henrique", Context: "política", Proximity: "terceiro", PoliticalParty: "PSB", City: "Jaboatão"}, []string{"candidato"}},
}

func newSeedCommand(g *globalFlags) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load sample people, tags and relationships into an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withContainer(func(i do.Injector) error {
				ctx := cmd.Context()
				u, err := do.MustInvoke[*service.UserService](i).GetUserByEmail(ctx, email)
				if err != nil {
					return err
				}
				people := do.MustInvoke[*service.PersonService](i)
				tags := do.MustInvoke[*service.TagService](i)
				rels := do.MustInvoke[*service.RelationshipService](i)

				ids := make([]string, 0, len(seedPeople))
				for _, sp := range seedPeople {
					p, err := people.Create(ctx, u.ID, sp.input)
					if err != nil {
						return fmt.Errorf("create %s: %w", sp.input.Name, err)
					}
					ids = append(ids, p.ID)
					for _, name := range sp.tags {
						if _, _, err := tags.AttachByName(ctx, u.ID, p.ID, name, ""); err != nil {
							return fmt.Errorf("tag %s: %w", sp.input.Name, err)
						}
					}
				}

				for k := 1; k < len(ids); k++ {
					if _, err := rels.Create(ctx, u.ID, service.RelationshipInput{
						PersonAID: ids[0], PersonBID: ids[k], Type: "conhecido", Strength: intp(k + 1),
					}); err != nil {
						return fmt.Errorf("relationship: %w", err)
					}
				}

				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d people for %s\n", len(ids), u.Email)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "user", "", "Email of the account to seed")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
