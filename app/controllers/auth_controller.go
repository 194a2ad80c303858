package controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/PawTalesApp/PawTales/app/models"
	"github.com/PawTalesApp/PawTales/internal/pkg/database"
	"github.com/PawTalesApp/PawTales/internal/pkg/mail"
	"github.com/PawTalesApp/PawTales/internal/pkg/session"
	"github.com/PawTalesApp/PawTales/internal/pkg/usercontext"
)

func HandleAuthLogin(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		var user models.User
		fm := fiber.Map{
			"type": "error",
		}

		// notice: in production you should not inform the user
		// with detailed messages about login failures
		result := database.GetDB().Where("email = ?", c.FormValue("email")).First(&user)
		if result.Error != nil {
			fm["message"] = "There is a problem with the login process"

			return flash.WithError(c, fm).Redirect("/login")
		}

		if !user.CheckPassword(c.FormValue("password")) {
			fm["message"] = "There is a problem with the login process"

			return flash.WithError(c, fm).Redirect("/login")
		}

		if !user.IsActive() {
			fm["message"] = "Please activate your account first"

			return flash.WithError(c, fm).Redirect("/login")
		}

		sess, err := session.GetSessionStore().Get(c)
		if err != nil {
			fm["message"] = fmt.Sprintf("something went wrong: %s", err)

			return flash.WithError(c, fm).Redirect("/login")
		}

		sess.Set(usercontext.AuthKey, true)
		sess.Set(usercontext.KeyUserID, user.ID)
		sess.Set(usercontext.KeyUsername, user.Name)
		sess.Set(usercontext.KeyIsAdmin, user.Role == models.ROLE_ADMIN)

		err = sess.Save()
		if err != nil {
			fm["message"] = fmt.Sprintf("something went wrong: %s", err)

			return flash.WithError(c, fm).Redirect("/login")
		}

		database.GetDB().Model(&user).Update("last_login_at", time.Now())

		fm = fiber.Map{
			"type":    "success",
			"message": "Welcome back!",
		}

		return flash.WithSuccess(c, fm).Redirect("/")
	}

	return c.Render("auth/login", fiber.Map{
		"Title": "Login",
		"CSRF":  c.Locals("csrf"),
		"Flash": flash.Get(c),
	})
}

func HandleAuthLogout(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type": "error",
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		fm["message"] = "logged out (no sess)"

		return flash.WithError(c, fm).Redirect("/login")
	}

	err = sess.Destroy()
	if err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)

		return flash.WithError(c, fm).Redirect("/login")
	}

	fm = fiber.Map{
		"type":    "success",
		"message": "Bye bye! See you soon.",
	}

	c.Locals(usercontext.KeyFromProtected, false)

	return flash.WithSuccess(c, fm).Redirect("/login")
}

func HandleAuthRegister(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		user, err := models.CreateUser(c.FormValue("username"), c.FormValue("email"), c.FormValue("password"))
		if err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}

			return flash.WithError(c, fm).Redirect("/register")
		}

		if err := user.GenerateActivationToken(); err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}

			return flash.WithError(c, fm).Redirect("/register")
		}

		db := database.GetDB()
		if err := db.Create(&user).Error; err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}

			return flash.WithError(c, fm).Redirect("/register")
		}

		// Every fresh account starts with its free credit allotment
		if _, err := models.GetOrCreateUserEntitlement(db, user.ID); err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}

			return flash.WithError(c, fm).Redirect("/register")
		}

		go mail.SendActivationMail(user.Email, user.Name, user.ActivationToken)

		fm := fiber.Map{
			"type":    "success",
			"message": "Registration successful! Check your inbox for the activation code.",
		}

		return flash.WithSuccess(c, fm).Redirect("/login")
	}

	return c.Render("auth/register", fiber.Map{
		"Title": "Register",
		"CSRF":  c.Locals("csrf"),
		"Flash": flash.Get(c),
	})
}

func HandleAuthActivate(c *fiber.Ctx) error {
	code := c.Query("code", c.FormValue("code"))

	if c.Method() == fiber.MethodPost || code != "" {
		fm := fiber.Map{
			"type": "error",
		}

		var user models.User
		result := database.GetDB().Where("activation_token = ?", code).First(&user)
		if result.Error != nil || code == "" {
			fm["message"] = "Invalid activation code"

			return flash.WithError(c, fm).Redirect("/activate")
		}

		user.Status = models.STATUS_ACTIVE
		user.ActivationToken = ""
		if err := database.GetDB().Save(&user).Error; err != nil {
			fm["message"] = fmt.Sprintf("something went wrong: %s", err)

			return flash.WithError(c, fm).Redirect("/activate")
		}

		fm = fiber.Map{
			"type":    "success",
			"message": "Your account is active. You can log in now!",
		}

		return flash.WithSuccess(c, fm).Redirect("/login")
	}

	return c.Render("auth/activate", fiber.Map{
		"Title": "Activate account",
		"CSRF":  c.Locals("csrf"),
		"Flash": flash.Get(c),
	})
}
