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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yorkie-team/coedit/api/types"
	"github.com/yorkie-team/coedit/client/rooms"
	"github.com/yorkie-team/coedit/internal/logging"
)

var (
	roomOutput          string
	roomProjectID       string
	roomFileID          string
	roomType            string
	roomMaxParticipants int
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Manage the rooms of the relay server",
	}

	list := &cobra.Command{
		Use:   "ls",
		Short: "List rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(roomOutput); err != nil {
				return err
			}

			list, err := newRoomClient(cmd).ListRooms(cmd.Context(), roomProjectID)
			if err != nil {
				return err
			}
			return printRooms(cmd, list)
		},
	}
	list.Flags().StringVar(&roomProjectID, "project", "", "Project of the rooms to list")

	get := &cobra.Command{
		Use:   "get [room-id]",
		Short: "Show a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(roomOutput); err != nil {
				return err
			}

			room, err := newRoomClient(cmd).GetRoom(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRooms(cmd, []*types.Room{room})
		},
	}

	create := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(roomOutput); err != nil {
				return err
			}

			req := &types.CreateRoomRequest{
				Name:      args[0],
				Type:      types.RoomType(roomType),
				ProjectID: roomProjectID,
				FileID:    roomFileID,
			}
			if roomMaxParticipants > 0 {
				req.MaxParticipants = &roomMaxParticipants
			}

			room, err := newRoomClient(cmd).CreateRoom(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printRooms(cmd, []*types.Room{room})
		},
	}
	create.Flags().StringVar(&roomProjectID, "project", "", "Project of the room")
	create.Flags().StringVar(&roomFileID, "file", "", "File of the room")
	create.Flags().StringVar(&roomType, "type", string(types.RoomTypeProject), "Type of the room: project, file, voice, custom")
	create.Flags().IntVar(&roomMaxParticipants, "max-participants", 0, "Maximum participants, unlimited if 0")

	cmd.PersistentFlags().StringVarP(&roomOutput, "output", "o", "", "One of 'yaml' or 'json'.")
	cmd.AddCommand(list, get, create)
	return cmd
}

func newRoomClient(cmd *cobra.Command) *rooms.Client {
	apiURL, _ := cmd.Flags().GetString("api-url")
	return rooms.NewClient(apiURL, rooms.Options{
		Logger: logging.New("cli"),
	})
}

func printRooms(cmd *cobra.Command, list []*types.Room) error {
	switch roomOutput {
	case "yaml":
		marshalled, err := yaml.Marshal(list)
		if err != nil {
			return fmt.Errorf("marshal YAML: %w", err)
		}
		cmd.Println(string(marshalled))
	case "json":
		marshalled, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		cmd.Println(string(marshalled))
	default:
		cmd.Printf("%-20s  %-20s  %-8s  %-12s  %s\n", "ID", "NAME", "TYPE", "PROJECT", "PARTICIPANTS")
		for _, room := range list {
			cmd.Printf("%-20s  %-20s  %-8s  %-12s  %s\n",
				room.ID, room.Name, room.Type, room.ProjectID, strings.Join(room.Participants, ","))
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(newRoomCmd())
}
