/*
 * Copyright 2025 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/yorkie-team/coedit/api/types"
	"github.com/yorkie-team/coedit/client"
	"github.com/yorkie-team/coedit/client/transport"
)

var (
	joinClientConfPath string
	joinWSURL          string
	joinUserID         string
	joinUserName       string
	joinUserEmail      string
)

func newJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join [room-id]",
		Short: "Join a room, print its events and append stdin lines to its document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roomID := args[0]

			conf := client.NewConfig()
			if joinClientConfPath != "" {
				parsed, err := client.NewConfigFromFile(joinClientConfPath)
				if err != nil {
					return err
				}
				conf = parsed
			}
			if cmd.Flags().Changed("ws-url") || joinClientConfPath == "" {
				conf.WSURL = joinWSURL
			}
			if apiURL, _ := cmd.Flags().GetString("api-url"); cmd.Flags().Changed("api-url") || joinClientConfPath == "" {
				conf.APIURL = apiURL
			}

			cli, err := client.New(conf, client.WithUser(joinUserID, joinUserName, joinUserEmail))
			if err != nil {
				return err
			}
			defer func() {
				if err := cli.Close(); err != nil {
					cmd.PrintErrln(err)
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cli.OnConnectionStateChange(func(state transport.State) {
				cmd.Printf("[connection] %s\n", state)
			})
			cli.SubscribeAll(func(event types.Event) {
				cmd.Println(describeEvent(event))
			})

			if err := cli.Connect(ctx); err != nil {
				return err
			}
			room, err := cli.JoinRoom(ctx, roomID)
			if err != nil {
				return err
			}
			cmd.Printf("joined %s(%s) as %s\n", room.Name, room.ID, cli.UserID())
			defer func() {
				if summary, ok := describeDocument(cli, roomID); ok {
					cmd.Println(summary)
				}
			}()

			lines := make(chan string)
			go readLines(lines)

			for {
				select {
				case <-ctx.Done():
					return nil
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					if err := appendLine(cli, roomID, line); err != nil {
						return err
					}
				}
			}
		},
	}
}

func readLines(lines chan<- string) {
	defer close(lines)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}

// appendLine appends the line to the end of the document of the room.
func appendLine(cli *client.Client, roomID, line string) error {
	doc, err := cli.Document(roomID)
	if err != nil {
		return err
	}

	_, err = cli.Insert(roomID, utf8.RuneCountInString(doc.Text()), line+"\n")
	return err
}

// describeDocument summarizes the replica of the room before leaving it.
func describeDocument(cli *client.Client, roomID string) (string, bool) {
	doc, err := cli.Document(roomID)
	if err != nil {
		return "", false
	}

	log := doc.Log()
	return fmt.Sprintf("[document] revision %d, %d operations, clock %s, lamport %d, %d unsent",
		doc.Revision(), log.Len(), log.Clock(), log.Lamport(), doc.Pending()), true
}

func describeEvent(event types.Event) string {
	switch event.Type {
	case types.ContentChange:
		return fmt.Sprintf("[%s] %s: %s", event.Type, event.UserID, event.Payload.Operation)
	case types.CursorMove:
		if event.Payload.Cursor != nil {
			return fmt.Sprintf("[%s] %s: (%.0f, %.0f)", event.Type, event.UserID,
				event.Payload.Cursor.X, event.Payload.Cursor.Y)
		}
	case types.FileOpen, types.FileClose:
		return fmt.Sprintf("[%s] %s: %s", event.Type, event.UserID, event.Payload.FileID)
	case types.PresenceUpdate:
		if event.Payload.User != nil {
			return fmt.Sprintf("[%s] %s: %s", event.Type, event.UserID, event.Payload.User.Status)
		}
	}
	return fmt.Sprintf("[%s] %s", event.Type, event.UserID)
}

func init() {
	cmd := newJoinCmd()
	cmd.Flags().StringVarP(
		&joinClientConfPath,
		"config",
		"c",
		"",
		"Client config path",
	)
	cmd.Flags().StringVar(
		&joinWSURL,
		"ws-url",
		client.DefaultWSURL,
		"Address of the socket endpoint of the relay server",
	)
	cmd.Flags().StringVar(&joinUserID, "user", "", "Id of the local user, generated if empty")
	cmd.Flags().StringVar(&joinUserName, "name", "", "Name of the local user")
	cmd.Flags().StringVar(&joinUserEmail, "email", "", "Email of the local user")

	rootCmd.AddCommand(cmd)
}
