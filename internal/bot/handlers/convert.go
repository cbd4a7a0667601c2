package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/tgstats/internal/chat"
)

// EventID is the stored identifier of a Bot API message. It cannot collide
// with identifiers written by the history dump.
func EventID(chatID int64, messageID int) chat.ID {
	return chat.ID(fmt.Sprintf("bot:%d:%d", chatID, messageID))
}

func printName(parts ...string) string {
	return strings.ReplaceAll(strings.TrimSpace(strings.Join(parts, " ")), " ", "_")
}

func userPeer(u *models.User) chat.Peer {
	if u == nil {
		return chat.Peer{}
	}
	return chat.Peer{
		ID:        chat.ID(strconv.FormatInt(u.ID, 10)),
		PeerType:  "user",
		PrintName: printName(u.FirstName, u.LastName),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}
}

func chatPeer(c models.Chat) chat.Peer {
	peerType := "chat"
	if c.Type == models.ChatTypeChannel {
		peerType = "channel"
	} else if c.Type == models.ChatTypePrivate {
		peerType = "user"
	}
	name := c.Title
	if name == "" {
		name = strings.TrimSpace(c.FirstName + " " + c.LastName)
	}
	return chat.Peer{
		ID:        chat.ID(strconv.FormatInt(c.ID, 10)),
		PeerType:  peerType,
		PrintName: printName(name),
		Title:     c.Title,
		Username:  c.Username,
	}
}

// EventFromMessage converts a Bot API message into the payload shape the
// reporter reads. It returns false for nil messages.
func EventFromMessage(msg *models.Message) (*chat.Event, bool) {
	if msg == nil {
		return nil, false
	}

	ev := &chat.Event{
		ID:   EventID(msg.Chat.ID, msg.ID),
		Kind: chat.KindMessage,
		Date: int64(msg.Date),
		From: userPeer(msg.From),
		To:   chatPeer(msg.Chat),
	}

	switch {
	case len(msg.NewChatMembers) > 0:
		action := &chat.Action{Type: chat.ActionAddUser}
		for i := range msg.NewChatMembers {
			action.Users = append(action.Users, userPeer(&msg.NewChatMembers[i]))
		}
		if len(msg.NewChatMembers) == 1 && msg.From != nil && msg.From.ID == msg.NewChatMembers[0].ID {
			action.Type = chat.ActionAddUserLink
		}
		ev.Kind, ev.Service, ev.Action = chat.KindService, true, action
	case msg.LeftChatMember != nil:
		user := userPeer(msg.LeftChatMember)
		ev.Kind, ev.Service = chat.KindService, true
		ev.Action = &chat.Action{Type: chat.ActionDelUser, User: &user}
	case msg.NewChatTitle != "":
		ev.Kind, ev.Service = chat.KindService, true
		ev.Action = &chat.Action{Type: chat.ActionRename, Title: msg.NewChatTitle}
	case msg.Text != "":
		ev.Text = msg.Text
	case len(msg.Photo) > 0:
		ev.Media = &chat.Media{Type: chat.MediaPhoto, Caption: msg.Caption}
	case msg.Document != nil:
		ev.Media = &chat.Media{Type: chat.MediaDocument, Caption: msg.Caption}
	case msg.Location != nil:
		ev.Media = &chat.Media{Type: chat.MediaGeo}
	case msg.Contact != nil:
		ev.Media = &chat.Media{Type: chat.MediaContact}
	}
	return ev, true
}
