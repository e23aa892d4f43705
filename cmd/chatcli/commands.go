package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/gst-chat/client/internal/controller"
	"github.com/zhouzirui/gst-chat/client/internal/render"
	"github.com/zhouzirui/gst-chat/client/internal/service/api"
	"github.com/zhouzirui/gst-chat/client/internal/ui/repl"
)

var errNotSignedIn = errors.New(`not signed in, run "chatcli login" first`)

var (
	loginEmail    string
	loginPassword string

	registerName     string
	registerEmail    string
	registerPassword string

	exportOutput string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and open the chat session",
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	RunE:  runRegister,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return runChat(cmd.Context(), a)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	RunE:  runLogout,
}

var darkCmd = &cobra.Command{
	Use:   "dark",
	Short: "Toggle dark mode",
	RunE:  runDark,
}

var exportCmd = &cobra.Command{
	Use:   "export <chatID>",
	Short: "Write a chat transcript as an HTML page",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email (prompted when empty)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (prompted when empty)")

	registerCmd.Flags().StringVar(&registerName, "name", "", "display name")
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "account email")
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "account password")

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
}

// promptMissing fills an empty flag value from the terminal.
func promptMissing(a *app, label string, value *string) {
	if *value != "" {
		return
	}
	if answer, ok := a.term.Prompt(label, ""); ok {
		*value = answer
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	promptMissing(a, "Email:", &loginEmail)
	promptMissing(a, "Password:", &loginPassword)

	nav := &repl.Navigator{}
	login := controller.NewLoginController(a.client, a.term, nav)
	if !login.Submit(cmd.Context(), loginEmail, loginPassword) {
		return errors.New("login failed")
	}
	return runChat(cmd.Context(), a)
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	promptMissing(a, "Name:", &registerName)
	promptMissing(a, "Email:", &registerEmail)
	promptMissing(a, "Password:", &registerPassword)

	nav := &repl.Navigator{}
	register := controller.NewRegisterController(a.client, a.term, nav)
	if !register.Submit(cmd.Context(), registerName, registerEmail, registerPassword) {
		return errors.New("registration failed")
	}
	a.term.Println(`now run "chatcli login"`)
	return nil
}

// runChat opens the chat page and hands the terminal to the session loop.
func runChat(ctx context.Context, a *app) error {
	nav := &repl.Navigator{}
	ctrl := controller.NewChatController(controller.ChatDeps{
		API:    a.client,
		Dialer: a.dialer,
		View:   a.term,
		Nav:    nav,
		Prompt: a.term,
		Theme:  a.theme,
	})

	if err := ctrl.Init(ctx); err != nil {
		ctrl.Close()
		if errors.Is(err, controller.ErrUnauthenticated) {
			return errNotSignedIn
		}
		return err
	}

	if err := repl.New(ctrl, a.term, nav).Run(ctx); err != nil {
		return err
	}
	if page, ok := nav.Last(); ok && page == controller.PageLogin {
		a.term.Println("signed out")
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.client.Logout(cmd.Context()); err != nil && errors.Is(err, api.ErrNetwork) {
		return fmt.Errorf("logout: %w", err)
	}
	if err := a.jar.Clear(a.client.BaseURL()); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	a.term.Println("signed out")
	return nil
}

func runDark(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	mode := controller.NewDarkMode(a.theme, a.term)
	if mode.Toggle() {
		a.term.Println("dark mode on")
	} else {
		a.term.Println("dark mode off")
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	chatID := args[0]

	title := chatID
	chats, err := a.client.ListChats(ctx)
	if errors.Is(err, api.ErrUnauthorized) {
		return errNotSignedIn
	}
	for _, item := range chats {
		if item.ID == chatID {
			title = item.DisplayTitle()
		}
	}

	messages, err := a.client.Messages(ctx, chatID)
	if err != nil {
		if detail := api.DetailOf(err); detail != "" {
			return fmt.Errorf("load messages: %s", detail)
		}
		return fmt.Errorf("load messages: %w", err)
	}

	var out io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	return render.WriteTranscript(out, render.Transcript{
		Title:    title,
		Dark:     a.theme.Dark(),
		Messages: messages,
	})
}
