package bot

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// GenerateCalendarKeyboard builds an inline month grid. Occupied dates and
// dates before today render as dots with no action; free dates answer with a
// date: callback. Month navigation uses cal: callbacks.
func GenerateCalendarKeyboard(year int, month time.Month, occupied map[string]bool, today time.Time) tgbotapi.InlineKeyboardMarkup {
	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	weekdayOffset := int(firstDay.Weekday())
	if weekdayOffset == 0 {
		weekdayOffset = 7 // Monday-first grid
	}
	daysInMonth := firstDay.AddDate(0, 1, -1).Day()

	rows := make([][]tgbotapi.InlineKeyboardButton, 0)
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %d", monthLabel(month), year), "noop"),
	})

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("Lu", "noop"),
		tgbotapi.NewInlineKeyboardButtonData("Ma", "noop"),
		tgbotapi.NewInlineKeyboardButtonData("Mi", "noop"),
		tgbotapi.NewInlineKeyboardButtonData("Ju", "noop"),
		tgbotapi.NewInlineKeyboardButtonData("Vi", "noop"),
		tgbotapi.NewInlineKeyboardButtonData("Sa", "noop"),
		tgbotapi.NewInlineKeyboardButtonData("Do", "noop"),
	})

	day := 1
	for day <= daysInMonth {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 7)
		for col := 1; col <= 7; col++ {
			if len(rows) == 2 && col < weekdayOffset {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", "noop"))
				continue
			}
			if day > daysInMonth {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", "noop"))
				continue
			}
			date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			dateStr := fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)

			selectable := !occupied[dateStr] && !date.Before(today)
			if selectable {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("%d", day), fmt.Sprintf("date:%s", dateStr)))
			} else {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData("·", "noop"))
			}
			day++
		}
		rows = append(rows, row)
	}

	prev := firstDay.AddDate(0, -1, 0)
	next := firstDay.AddDate(0, 1, 0)
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅️", fmt.Sprintf("cal:%04d-%02d", prev.Year(), int(prev.Month()))),
		tgbotapi.NewInlineKeyboardButtonData("➡️", fmt.Sprintf("cal:%04d-%02d", next.Year(), int(next.Month()))),
	})
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("✖️ Cancelar", "cancel"),
	})

	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}
