package main

import (
	"fmt"
	"os"

	"github.com/dkeye/webcat/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(
		newUserAddCmd(opts),
		newUserPasswdCmd(opts),
		newUserImportCmd(opts),
	)
	return cmd
}

func newUserAddCmd(opts *rootOptions) *cobra.Command {
	var kind, password string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := domain.ParseUserType(kind)
			if !ok {
				return fmt.Errorf("unknown user type %q", kind)
			}
			store, _, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.CreateUser(cmd.Context(), args[0], password, t); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", args[0], t)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "type", "human", "account type: human, robot or admin")
	cmd.Flags().StringVar(&password, "password", "", "password hash as sent by clients")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUserPasswdCmd(opts *rootOptions) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "passwd NAME",
		Short: "Reset an account password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.ChangePassword(cmd.Context(), args[0], password); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "password changed for %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password hash")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// userFile is the `user import` fixture format.
type userFile struct {
	Users []struct {
		Name     string   `yaml:"name"`
		Password string   `yaml:"password"`
		Type     string   `yaml:"type"`
		Friends  []string `yaml:"friends"`
	} `yaml:"users"`
}

func newUserImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Create accounts and friendships from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var f userFile
			if err := yaml.Unmarshal(data, &f); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			store, _, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			for _, u := range f.Users {
				t, ok := domain.ParseUserType(u.Type)
				if !ok {
					return fmt.Errorf("user %s: unknown type %q", u.Name, u.Type)
				}
				if err := store.CreateUser(ctx, u.Name, u.Password, t); err != nil {
					return err
				}
			}
			friendships := 0
			for _, u := range f.Users {
				for _, friend := range u.Friends {
					if err := store.MakeFriends(ctx, u.Name, friend); err != nil {
						return err
					}
					friendships++
				}
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d users, %d friendships\n", len(f.Users), friendships)
			return nil
		},
	}
}

func newFriendsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "friends",
		Short: "Manage friendships",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add USER FRIEND",
		Short: "Make two accounts friends",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.MakeFriends(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s and %s are friends\n", args[0], args[1])
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list USER",
		Short: "List an account's friends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			for _, name := range store.ListFriends(cmd.Context(), args[0]) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	})
	return cmd
}
