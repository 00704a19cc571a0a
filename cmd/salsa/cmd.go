package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/lemussistemas/salsa-hn-frontend/academy"
	"github.com/lemussistemas/salsa-hn-frontend/attendance"
	"github.com/lemussistemas/salsa-hn-frontend/auth"
	ierrors "github.com/lemussistemas/salsa-hn-frontend/internal/errors"
	"github.com/lemussistemas/salsa-hn-frontend/internal/utils"
	"github.com/lemussistemas/salsa-hn-frontend/users"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	out      io.Writer
	appName  string
	manager  *auth.Manager
	academy  *academy.Service
	workflow *attendance.Workflow
}

func (cli *commandLine) printUsage() {
	displayAppname(cli.out, cli.appName)
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  register -username USER -email EMAIL [-nombre N -apellido A] - create an account")
	fmt.Fprintln(cli.out, "  login -username USER                  - start a session (password prompted)")
	fmt.Fprintln(cli.out, "  logout                                - end the session")
	fmt.Fprintln(cli.out, "  refresh                               - renew the access token")
	fmt.Fprintln(cli.out, "  whoami                                - show the current user")
	fmt.Fprintln(cli.out, "  status                                - show session state")
	fmt.Fprintln(cli.out, "  menus                                 - list the dashboard sections you may use")
	fmt.Fprintln(cli.out, "  alumnos                               - list students")
	fmt.Fprintln(cli.out, "  deudores                              - list enrollments with a pending balance")
	fmt.Fprintln(cli.out, "  sesiones                              - list class sessions")
	fmt.Fprintln(cli.out, "  roster -sesion ID                     - show a session's roster")
	fmt.Fprintln(cli.out, "  asistencia -sesion ID [-presentes a,b | -todos] - record attendance")
	fmt.Fprintln(cli.out, "  entregar -sesion ID                   - mark a session delivered")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	registerCmd := flag.NewFlagSet("register", flag.ContinueOnError)
	registerUname := registerCmd.String("username", "", "The new account's username.")
	registerEmail := registerCmd.String("email", "", "The new account's email.")
	registerFirst := registerCmd.String("nombre", "", "First name.")
	registerLast := registerCmd.String("apellido", "", "Last name.")

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginUname := loginCmd.String("username", "", "The username. The password will be prompted next.")

	rosterCmd := flag.NewFlagSet("roster", flag.ContinueOnError)
	rosterSesion := rosterCmd.String("sesion", "", "The class session id.")

	asistenciaCmd := flag.NewFlagSet("asistencia", flag.ContinueOnError)
	asistenciaSesion := asistenciaCmd.String("sesion", "", "The class session id.")
	asistenciaPresentes := asistenciaCmd.String("presentes", "", "Comma separated ids of the students present.")
	asistenciaTodos := asistenciaCmd.Bool("todos", false, "Mark every student present.")

	entregarCmd := flag.NewFlagSet("entregar", flag.ContinueOnError)
	entregarSesion := entregarCmd.String("sesion", "", "The class session id.")

	for _, fs := range []*flag.FlagSet{registerCmd, loginCmd, rosterCmd, asistenciaCmd, entregarCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "register":
		if err := registerCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *registerUname == "" || *registerEmail == "" {
			registerCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword("Enter password:")
		if err != nil {
			return err
		}
		pwd2, err := cli.promptPassword("Confirm password:")
		if err != nil {
			return err
		}
		return cli.register(ctx, users.Registration{
			Username:  *registerUname,
			Email:     *registerEmail,
			Password:  pwd,
			Password2: pwd2,
			FirstName: *registerFirst,
			LastName:  *registerLast,
		})
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(ctx, *loginUname, pwd)
	case "logout":
		if err := cli.manager.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "Sesión cerrada.")
		return nil
	case "refresh":
		if err := cli.manager.Refresh(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "Token renovado.")
		return nil
	case "whoami":
		return cli.whoami(ctx)
	case "status":
		return cli.status()
	case "menus":
		return cli.menus(ctx)
	case "alumnos":
		return cli.alumnos(ctx)
	case "deudores":
		return cli.deudores(ctx)
	case "sesiones":
		return cli.sesiones(ctx)
	case "roster":
		if err := rosterCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *rosterSesion == "" {
			rosterCmd.Usage()
			return errHelp
		}
		return cli.roster(ctx, *rosterSesion)
	case "asistencia":
		if err := asistenciaCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *asistenciaSesion == "" || (*asistenciaPresentes != "" && *asistenciaTodos) {
			asistenciaCmd.Usage()
			return errHelp
		}
		return cli.asistencia(ctx, *asistenciaSesion, utils.SplitList(*asistenciaPresentes), *asistenciaTodos)
	case "entregar":
		if err := entregarCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *entregarSesion == "" {
			entregarCmd.Usage()
			return errHelp
		}
		return cli.entregar(ctx, *entregarSesion)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword(prompt string) (string, error) {
	fmt.Fprint(cli.out, prompt)
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// withSession runs op, refreshing the session once if the access token was
// rejected.
func (cli *commandLine) withSession(ctx context.Context, op func(context.Context) error) error {
	return cli.manager.WithRefreshRetry(ctx, op)
}

func (cli *commandLine) register(ctx context.Context, r users.Registration) error {
	u, err := cli.manager.Register(ctx, r)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Bienvenido, %s.\n", u.FullName())
	return nil
}

func (cli *commandLine) login(ctx context.Context, username, password string) error {
	if err := cli.manager.Login(ctx, username, password); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Sesión iniciada como %s.\n", username)
	return nil
}

// whoami is not retried: a rejected profile request ends the session.
func (cli *commandLine) whoami(ctx context.Context) error {
	u, err := cli.manager.CurrentUser(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s <%s> (%s)\n", u.FullName(), u.Email, u.Username)
	return nil
}

func (cli *commandLine) status() error {
	if cli.manager.State() == auth.LoggedOut {
		fmt.Fprintln(cli.out, "Sin sesión.")
		return nil
	}
	claims, err := cli.manager.Claims()
	if err != nil {
		fmt.Fprintln(cli.out, "Sesión activa.")
		return nil
	}
	fmt.Fprintf(cli.out, "Sesión activa (usuario %s)", claims.User())
	if exp := claims.Expiry(); !exp.IsZero() {
		fmt.Fprintf(cli.out, ", el token vence %s", exp.Local().Format(time.DateTime))
	}
	fmt.Fprintln(cli.out, ".")
	return nil
}

func (cli *commandLine) menus(ctx context.Context) error {
	var menus []academy.Menu
	err := cli.withSession(ctx, func(ctx context.Context) error {
		var err error
		menus, err = cli.academy.ListMenus(ctx)
		return err
	})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	for _, m := range menus {
		fmt.Fprintf(tw, "%s\t%s\n", m.Nombre, m.Ruta)
	}
	return tw.Flush()
}

func (cli *commandLine) alumnos(ctx context.Context) error {
	var alumnos []academy.Alumno
	err := cli.withSession(ctx, func(ctx context.Context) error {
		var err error
		alumnos, err = cli.academy.ListAlumnos(ctx)
		return err
	})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNOMBRE\tEMAIL\tESTADO\tNACIMIENTO")
	for _, a := range alumnos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.NombreCompleto(), a.Email, a.Estado, utils.ValueOr(a.FechaNacimiento, "-"))
	}
	return tw.Flush()
}

func (cli *commandLine) deudores(ctx context.Context) error {
	var matriculas []academy.Matricula
	err := cli.withSession(ctx, func(ctx context.Context) error {
		var err error
		matriculas, err = cli.academy.ListMatriculasConDeuda(ctx)
		return err
	})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MATRICULA\tALUMNO\tGRUPO\tSALDO")
	for _, m := range matriculas {
		alumno := m.Alumno
		if m.AlumnoDetalle != nil {
			alumno = m.AlumnoDetalle.NombreCompleto()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, alumno, m.Grupo, m.Saldo)
	}
	return tw.Flush()
}

func (cli *commandLine) sesiones(ctx context.Context) error {
	var sesiones []academy.Sesion
	err := cli.withSession(ctx, func(ctx context.Context) error {
		var err error
		sesiones, err = cli.academy.ListSesiones(ctx)
		return err
	})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGRUPO\tFECHA\tESTADO")
	for _, s := range sesiones {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Grupo, s.Fecha, s.Estado)
	}
	return tw.Flush()
}

func (cli *commandLine) loadRoster(ctx context.Context, sesionID string) (*attendance.Roster, error) {
	var r *attendance.Roster
	err := cli.withSession(ctx, func(ctx context.Context) error {
		var err error
		r, err = cli.workflow.LoadRoster(ctx, sesionID)
		return err
	})
	return r, err
}

func (cli *commandLine) printRoster(r *attendance.Roster) error {
	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	for _, s := range r.Students() {
		mark := " "
		if r.IsPresent(s.ID) {
			mark = "x"
		}
		fmt.Fprintf(tw, "[%s]\t%s\t%s\n", mark, s.ID, s.Nombre)
	}
	return tw.Flush()
}

func (cli *commandLine) roster(ctx context.Context, sesionID string) error {
	r, err := cli.loadRoster(ctx, sesionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Sesión %s (%s, %s): %d alumnos\n", r.SessionID(), r.Session.Fecha, r.Session.Estado, r.Len())
	return cli.printRoster(r)
}

// asistencia replaces the stored presences with the given ones, or marks
// everybody present with todos. With neither, stored presences are kept.
func (cli *commandLine) asistencia(ctx context.Context, sesionID string, presentes []string, todos bool) error {
	r, err := cli.loadRoster(ctx, sesionID)
	if err != nil {
		return err
	}
	switch {
	case todos:
		if err := r.MarkAll(); err != nil {
			return err
		}
	case len(presentes) > 0:
		if err := r.ClearAll(); err != nil {
			return err
		}
		for _, id := range presentes {
			if err := r.MarkPresent(id); err != nil {
				return err
			}
		}
	}

	res, err := cli.workflow.Commit(ctx, r)
	var pending *attendance.StatusPendingError
	if ierrors.As(err, &pending) {
		fmt.Fprintf(cli.out, "Reintenta con: salsa entregar -sesion %s\n", pending.SessionID)
		return err
	}
	if err != nil {
		return err
	}
	present := 0
	for _, rec := range res.Records {
		if rec.Present {
			present++
		}
	}
	fmt.Fprintf(cli.out, "Asistencia registrada: %d de %d presentes. Sesión %s.\n", present, len(res.Records), res.Status)
	return cli.printRoster(r)
}

func (cli *commandLine) entregar(ctx context.Context, sesionID string) error {
	err := cli.withSession(ctx, func(ctx context.Context) error {
		return cli.workflow.MarkDelivered(ctx, sesionID)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Sesión %s marcada como dictada.\n", sesionID)
	return nil
}
