package handlers

import (
	"fmt"

	"github.com/grouprpg/sheetbot/internal/bot/command"
)

// Register wires every command of the bot into the registry. The word
// tables mirror the bot's chat vocabulary; registration order decides
// resolution priority for the (unique) words.
func (e *Env) Register(reg *command.Registry) error {
	entries := []struct {
		key        command.Key
		locales    map[string]string
		alternates []string
		handler    command.Handler
	}{
		{command.KeyAdd, map[string]string{"de": "Hinzufügen", "en-US": "add"}, nil, e.Add},
		{command.KeyChange, map[string]string{"de": "Ändern", "en-US": "change"}, nil, e.Change},
		{command.KeySetPicture, map[string]string{"de": "Bild-setzen", "en-US": "set-picture"}, []string{"set-pic", "Setze-Bild"}, e.SetPicture},
		{command.KeyShow, map[string]string{"de": "Anzeigen", "en-US": "show"}, []string{"Steckbrief", "Stecki"}, e.Show},
		{command.KeyMove, map[string]string{"de": "Verschieben", "en-US": "move"}, nil, e.Move},
		{command.KeyDelete, map[string]string{"de": "Löschen", "en-US": "delete"}, []string{"del"}, e.Delete},
		{command.KeyDeleteLast, map[string]string{"de": "Letzte-Löschen", "en-US": "delete-last"}, []string{"del-last"}, e.DeleteLast},
		{command.KeySearch, map[string]string{"de": "Suche", "en-US": "search"}, nil, e.Search},
		{command.KeyList, map[string]string{"de": "Liste", "en-US": "list"}, nil, e.List},
		{command.KeyDice, map[string]string{"de": "Würfeln", "en-US": "dice"}, []string{"Würfel", "\U0001f3b2"}, e.Dice},
		{command.KeyCoin, map[string]string{"de": "Münze", "en-US": "coin"}, nil, e.Coin},
		{command.KeyAuth, map[string]string{"de": "Berechtigen", "en-US": "auth"}, []string{"authorize", "authorise"}, e.Auth},
		{command.KeyUnauth, map[string]string{"de": "Entmachten", "en-US": "unauth"}, []string{"unauthorize", "unauthorise"}, e.Unauth},
		{command.KeySetCommand, map[string]string{"de": "Setze-Befehl", "en-US": "set-command"}, []string{"set-cmd"}, e.SetCommand},
		{command.KeySetKeyboards, map[string]string{"de": "Setze-Befehl-Tastaturen", "en-US": "set-command-keyboards"}, []string{"set-cmd-keyboards"}, e.SetCommandKeyboards},
		{command.KeySetAltCommands, map[string]string{"de": "Setze-Befehl-alternative-Befehle", "en-US": "set-command-alternative-commands"}, []string{"set-cmd-alt-cmd"}, e.SetCommandAltCommands},
	}

	for _, entry := range entries {
		if err := reg.Register(entry.key, entry.locales, entry.alternates, entry.handler); err != nil {
			return fmt.Errorf("register commands: %w", err)
		}
	}
	if err := reg.RegisterFallback(e.Fallback); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	return nil
}
