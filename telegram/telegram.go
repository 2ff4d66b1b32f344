package telegram

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"fitpickapi/models"
	"fitpickapi/test"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

var usernames string = os.Getenv("TG_ADMINS") //separated by comma from env

func EscapeMessage(message string) string {
	r := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return r.Replace(message)
}

func adminChatId() int64 {
	raw := os.Getenv("TG_ADMIN_CHAT_ID")
	if raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return id
		}
		fmt.Println("Cannot parse TG_ADMIN_CHAT_ID, using default channel")
	}
	return -1002417805219
}

// NotifyAdmins posts an ops event to the admin channel. Failures are
// logged and swallowed, callers never depend on delivery.
func NotifyAdmins(message string) {
	token := os.Getenv("TG_TOKEN")
	if token == "" {
		fmt.Println("[Telegram] TG_TOKEN not set, skipping admin message: ", message)
		return
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		fmt.Println("Error initializing telegram BOT!")
		return
	}
	msg := tgbotapi.NewMessage(adminChatId(), message)
	if _, err := bot.Send(msg); err != nil {
		fmt.Println(err)
	}
}

// RunOpsBot long-polls telegram for admin commands. Privileged commands
// go through the internal endpoints with the root password, same as any
// other ops client would.
func RunOpsBot(e *echo.Echo, db *gorm.DB) {

	if usernames == "" {
		usernames = "fitpickops"
	}
	bot, err := tgbotapi.NewBotAPI(os.Getenv("TG_TOKEN"))
	if err != nil {
		println("Error tg bot init")
		log.Panic(err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}
		log.Printf("[%s] %s", update.Message.From.UserName, update.Message.Text)

		password := ""
		if len(usernames) > 4 && update.FromChat() != nil && test.Contains(strings.Split(usernames, ","), update.FromChat().UserName) {
			password = os.Getenv("ROOT_PASSWORD")
		}

		switch update.Message.Command() {
		case "start":
			msg := tgbotapi.NewMessage(update.Message.Chat.ID, "FitPick ops bot. Commands:\n/stats - user and wardrobe counts\n/weatherreset - drop the weather cache")
			bot.Send(msg)
		case "stats":
			var userCount, garmentCount, outfitCount int64
			db.Model(&models.UserAccount{}).Count(&userCount)
			db.Model(&models.Garment{}).Count(&garmentCount)
			db.Model(&models.Outfit{}).Count(&outfitCount)
			msg := tgbotapi.NewMessage(update.Message.Chat.ID, fmt.Sprintf("👤 Users: %v\n👕 Garments: %v\n✨ Outfits: %v", userCount, garmentCount, outfitCount))
			bot.Send(msg)
		case "weatherreset":
			if password == "" {
				msg := tgbotapi.NewMessage(update.Message.Chat.ID, "Not allowed")
				bot.Send(msg)
				continue
			}
			apiMessage := test.InternalRequestMessage(e, "DELETE", "/internal/weather-cache", nil, password)
			msg := tgbotapi.NewMessage(update.Message.Chat.ID, EscapeMessage(apiMessage))
			msg.ReplyToMessageID = update.Message.MessageID
			bot.Send(msg)
		}
	}
}
